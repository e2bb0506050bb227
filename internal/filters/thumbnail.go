package filters

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Default thumbnail box
const (
	DefaultThumbWidth  = 200
	DefaultThumbHeight = 150
)

// Thumbnail describes the image rendition a programmatic client asked
// for. Alias is empty when the options could not be read.
type Thumbnail struct {
	Alias           string                 `json:"thumb_opts"`
	Width           int                    `json:"-"`
	Height          int                    `json:"-"`
	Size            string                 `json:"image_size"`
	SubjectLocation interface{}            `json:"image_subject_location"`
	Options         map[string]interface{} `json:"-"`
}

// ThumbnailFromOptions derives a thumbnail request from the image
// object of a related query. Width and height default to 200x150 and
// subject_location is passed through without taking part in the alias.
func ThumbnailFromOptions(opts map[string]interface{}) Thumbnail {
	fallback := Thumbnail{
		Width:           DefaultThumbWidth,
		Height:          DefaultThumbHeight,
		Size:            fmt.Sprintf("%dx%d", DefaultThumbWidth, DefaultThumbHeight),
		SubjectLocation: false,
	}

	options := make(map[string]interface{}, len(opts)+1)
	for k, v := range opts {
		options[k] = v
	}

	width, ok := dimension(options, "width", DefaultThumbWidth)
	if !ok {
		return fallback
	}
	height, ok := dimension(options, "height", DefaultThumbHeight)
	if !ok {
		return fallback
	}
	var subject interface{} = false
	if v, ok := options["subject_location"]; ok {
		subject = v
		delete(options, "subject_location")
	}
	delete(options, "width")
	delete(options, "height")
	options["size"] = [2]int{width, height}

	return Thumbnail{
		Alias:           ThumbnailAlias(options),
		Width:           width,
		Height:          height,
		Size:            fmt.Sprintf("%dx%d", width, height),
		SubjectLocation: subject,
		Options:         options,
	}
}

// ThumbnailAlias names a set of thumbnail options. Keys are sorted so
// equal options always produce the same 12 character name.
func ThumbnailAlias(options map[string]interface{}) string {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ":" + optionString(options[k])
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ".")))
	return base64.URLEncoding.EncodeToString(sum[:9])
}

func optionString(v interface{}) string {
	switch tv := v.(type) {
	case [2]int:
		return fmt.Sprintf("%dx%d", tv[0], tv[1])
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case []interface{}:
		items := make([]string, len(tv))
		for i, item := range tv {
			items[i] = optionString(item)
		}
		return "[" + strings.Join(items, ",") + "]"
	}
	return fmt.Sprint(v)
}

// dimension reads a positive integer option, or fallback when absent
func dimension(options map[string]interface{}, key string, fallback int) (int, bool) {
	v, ok := options[key]
	if !ok || v == nil {
		return fallback, true
	}
	switch tv := v.(type) {
	case float64:
		if tv <= 0 || tv != float64(int(tv)) {
			return 0, false
		}
		return int(tv), true
	case int:
		return tv, tv > 0
	case string:
		n, err := strconv.Atoi(tv)
		return n, err == nil && n > 0
	}
	return 0, false
}
