// Package filters evaluates declarative filter sets over the article
// predicate vocabulary and builds the choice lists and faceted counts
// shown next to listings.
package filters

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/newsblog-api/internal/config"
	"github.com/newsblog-api/internal/metrics"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/predicate"
	"github.com/newsblog-api/internal/validation"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
)

// Kind is the input type of a filter field
type Kind int

const (
	KindText Kind = iota
	KindChoice
	KindMulti
	KindInt
	KindBool
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindChoice:
		return "choice"
	case KindMulti:
		return "multiple_choice"
	case KindInt:
		return "integer"
	case KindBool:
		return "boolean"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// DefaultEmptyLabel is the placeholder shown for an unselected choice
const DefaultEmptyLabel = "---------"

// JSONParam carries the structured payload encoding of a filter request
const JSONParam = "json"

// Value is a parsed filter input. Only the member matching the field
// kind is set.
type Value struct {
	Text   string
	IDs    []int64
	Int    int
	Bool   bool
	Object map[string]interface{}
}

// Env carries request-scoped values predicates depend on
type Env struct {
	Locale string
}

// Field declares one named filter input
type Field struct {
	Name       string
	Label      string
	Kind       Kind
	Required   bool
	EmptyLabel string
	// Min and Max bound integer inputs; Max <= 0 leaves it unbounded
	Min, Max int
	// Allowed restricts text inputs to a fixed set of values
	Allowed []string
	// Options lists the selectable references of choice fields
	Options func(ctx context.Context) ([]models.Reference, error)
	// Apply returns the predicate for a parsed value. A nil Apply makes
	// the field informational only.
	Apply func(ctx context.Context, v Value, env Env) (predicate.Predicate, error)
}

// Input is a flat set of raw filter values plus structured options
// decoded from a JSON payload.
type Input struct {
	Values  url.Values
	Objects map[string]map[string]interface{}
	// Payload is set when the input came from a JSON document
	Payload bool
}

// FromQuery builds an Input from query parameters. When the json
// parameter holds an object its members are merged over the plain
// values and mode defaults to "json". A payload that fails to decode
// is ignored.
func FromQuery(q url.Values) Input {
	in := Input{Values: url.Values{}, Objects: map[string]map[string]interface{}{}}
	for k, v := range q {
		if k == JSONParam {
			continue
		}
		in.Values[k] = append([]string(nil), v...)
	}

	raw := q.Get(JSONParam)
	if raw == "" {
		return in
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return in
	}
	in.Payload = true
	for k, v := range doc {
		switch tv := v.(type) {
		case map[string]interface{}:
			in.Objects[k] = tv
		case []interface{}:
			vals := make([]string, 0, len(tv))
			for _, item := range tv {
				vals = append(vals, scalar(item))
			}
			in.Values[k] = vals
		case nil:
			delete(in.Values, k)
		default:
			in.Values.Set(k, scalar(tv))
		}
	}
	if in.Values.Get("mode") == "" {
		in.Values.Set("mode", "json")
	}
	return in
}

func scalar(v interface{}) string {
	switch tv := v.(type) {
	case string:
		return tv
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(tv)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// Result is the outcome of applying a filter set
type Result struct {
	Where  predicate.Predicate
	Valid  bool
	Errors []validation.ValidationError
	// Values holds every accepted input by field name
	Values map[string]Value
}

// Int returns the integer value of name, or fallback
func (r *Result) Int(name string, fallback int) int {
	if v, ok := r.Values[name]; ok {
		return v.Int
	}
	return fallback
}

// Has reports whether name was supplied and accepted
func (r *Result) Has(name string) bool {
	_, ok := r.Values[name]
	return ok
}

// Set is an ordered list of filter fields evaluated together
type Set struct {
	name   string
	strict bool
	fields []*Field
	cfg    *config.FiltersConfig
	log    zerolog.Logger
}

// NewSet creates a set. cfg supplies exclusion rules and empty labels;
// nil uses none.
func NewSet(name string, strict bool, cfg *config.FiltersConfig, log zerolog.Logger, fields ...*Field) *Set {
	if cfg == nil {
		cfg = &config.FiltersConfig{}
	}
	return &Set{
		name:   name,
		strict: strict,
		fields: fields,
		cfg:    cfg,
		log:    log.With().Str("component", "filters").Str("set", name).Logger(),
	}
}

// Fields returns the declared fields in order
func (s *Set) Fields() []*Field {
	return s.fields
}

// Field returns the field called name
func (s *Set) Field(name string) (*Field, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Apply parses in against every field and composes the accepted values
// into one predicate. Unknown names and empty values are ignored. In
// strict mode any invalid value turns Where into the empty set. The
// returned error is reserved for storage failures.
func (s *Set) Apply(ctx context.Context, in Input, env Env) (*Result, error) {
	res := &Result{Valid: true, Values: map[string]Value{}}
	parts := []predicate.Predicate{}

	for _, f := range s.fields {
		v, present, verr, err := s.parse(ctx, f, in)
		if err != nil {
			return nil, err
		}
		if verr != nil {
			res.Errors = append(res.Errors, *verr)
			continue
		}
		if !present {
			if f.Required {
				res.Errors = append(res.Errors, validation.ValidationError{Field: f.Name, Message: "This field is required."})
			}
			continue
		}
		res.Values[f.Name] = v
		if f.Apply == nil {
			continue
		}
		p, err := f.Apply(ctx, v, env)
		if err != nil {
			return nil, fmt.Errorf("failed to apply filter %s: %w", f.Name, err)
		}
		parts = append(parts, p)
	}

	if len(res.Errors) > 0 {
		res.Valid = false
		metrics.ObserveFilterRejection(s.name, s.strict)
		s.log.Debug().Bool("strict", s.strict).Int("errors", len(res.Errors)).Msg("Filter input rejected")
		if s.strict {
			res.Where = predicate.None()
			return res, nil
		}
	}
	res.Where = predicate.And(parts...)
	return res, nil
}

// parse reads the raw input of f. present is false when nothing usable
// was supplied.
func (s *Set) parse(ctx context.Context, f *Field, in Input) (v Value, present bool, verr *validation.ValidationError, err error) {
	invalid := func(msg string, value interface{}) (Value, bool, *validation.ValidationError, error) {
		return Value{}, false, &validation.ValidationError{Field: f.Name, Message: msg, Value: value}, nil
	}

	if f.Kind == KindObject {
		if obj, ok := in.Objects[f.Name]; ok {
			return Value{Object: obj}, true, nil, nil
		}
		if raw := firstNonEmpty(in.Values[f.Name]); raw != "" {
			return invalid("Enter an object.", raw)
		}
		return Value{}, false, nil, nil
	}

	raws := nonEmpty(in.Values[f.Name])
	if len(raws) == 0 {
		return Value{}, false, nil, nil
	}

	switch f.Kind {
	case KindText:
		text := strings.TrimSpace(raws[0])
		if text == "" {
			return Value{}, false, nil, nil
		}
		if len(f.Allowed) > 0 && !containsString(f.Allowed, text) {
			return invalid("Select a valid choice.", text)
		}
		return Value{Text: text}, true, nil, nil

	case KindInt:
		n, convErr := strconv.Atoi(strings.TrimSpace(raws[0]))
		if convErr != nil {
			return invalid("Enter a whole number.", raws[0])
		}
		if n < f.Min {
			return invalid(fmt.Sprintf("Ensure this value is greater than or equal to %d.", f.Min), n)
		}
		if f.Max > 0 && n > f.Max {
			return invalid(fmt.Sprintf("Ensure this value is less than or equal to %d.", f.Max), n)
		}
		return Value{Int: n}, true, nil, nil

	case KindBool:
		switch strings.ToLower(strings.TrimSpace(raws[0])) {
		case "unknown", "none":
			return Value{}, false, nil, nil
		}
		b, convErr := strconv.ParseBool(strings.TrimSpace(raws[0]))
		if convErr != nil {
			return invalid("Enter a valid boolean.", raws[0])
		}
		return Value{Bool: b}, true, nil, nil

	case KindChoice, KindMulti:
		if f.Kind == KindChoice {
			raws = raws[:1]
		}
		options, loadErr := s.options(ctx, f)
		if loadErr != nil {
			return Value{}, false, nil, loadErr
		}
		allowed := make(map[int64]bool, len(options))
		for _, o := range options {
			allowed[o.ID] = true
		}
		ids := make([]int64, 0, len(raws))
		for _, raw := range raws {
			id, convErr := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if convErr != nil || !allowed[id] {
				return invalid(fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", raw), raw)
			}
			ids = append(ids, id)
		}
		return Value{IDs: ids}, true, nil, nil
	}
	return Value{}, false, nil, nil
}

// Choice is the public description of one filter field
type Choice struct {
	Name       string             `json:"name"`
	Label      string             `json:"label"`
	Kind       string             `json:"kind"`
	Required   bool               `json:"required,omitempty"`
	EmptyLabel string             `json:"empty_label,omitempty"`
	Options    []models.Reference `json:"options,omitempty"`
	Selected   []int64            `json:"selected,omitempty"`
}

// Choices describes every field with its sorted options. selected marks
// the accepted values of a previous Apply and may be nil.
func (s *Set) Choices(ctx context.Context, selected *Result) ([]Choice, error) {
	out := make([]Choice, 0, len(s.fields))
	for _, f := range s.fields {
		c := Choice{Name: f.Name, Label: f.Label, Kind: f.Kind.String(), Required: f.Required}
		if f.Kind == KindChoice || f.Kind == KindMulti {
			options, err := s.options(ctx, f)
			if err != nil {
				return nil, err
			}
			c.Options = options
			c.EmptyLabel = s.cfg.EmptyLabel(f.Name, f.EmptyLabel)
			if c.EmptyLabel == "" {
				c.EmptyLabel = DefaultEmptyLabel
			}
			if selected != nil {
				c.Selected = selected.Values[f.Name].IDs
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// options loads the options of f, drops excluded ones and sorts them
func (s *Set) options(ctx context.Context, f *Field) ([]models.Reference, error) {
	if f.Options == nil {
		return nil, nil
	}
	all, err := f.Options(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s choices: %w", f.Name, err)
	}
	rules := s.cfg.Exclude[f.Name]
	kept := make([]models.Reference, 0, len(all))
	for _, o := range all {
		if !excluded(o, rules) {
			kept = append(kept, o)
		}
	}
	SortReferences(kept)
	return kept, nil
}

func excluded(o models.Reference, rules []config.ExcludeRule) bool {
	for _, r := range rules {
		v, ok := o.Attrs[r.Field]
		if !ok {
			continue
		}
		if containsString(r.Values, v) {
			return true
		}
	}
	return false
}

// SortReferences orders refs by case-folded label, then id
func SortReferences(refs []models.Reference) {
	fold := cases.Fold()
	keys := make(map[int64]string, len(refs))
	for _, r := range refs {
		keys[r.ID] = fold.String(r.Label)
	}
	sort.SliceStable(refs, func(i, j int) bool {
		ki, kj := keys[refs[i].ID], keys[refs[j].ID]
		if ki != kj {
			return ki < kj
		}
		return refs[i].ID < refs[j].ID
	})
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(values []string) string {
	if v := nonEmpty(values); len(v) > 0 {
		return v[0]
	}
	return ""
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
