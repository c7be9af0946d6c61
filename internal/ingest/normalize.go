package ingest

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vanplanner/VanLayoutMCP/internal/models"
)

// typeAliases is checked in order after an exact match fails. Earlier
// entries win, so the more specific words come first. Keywords of up to
// wholeWordMaxLen runes only match whole words: "lit" must not hit
// "utility" or "split".
var typeAliases = []struct {
	Type     models.FurnitureType
	Keywords []string
}{
	{models.FurnitureBathroom, []string{"bathroom", "bath", "toilet", "wc", "shower", "douche", "salle de bain", "sanitaire"}},
	{models.FurnitureKitchen, []string{"kitchen", "cuisine", "cook", "stove", "sink", "evier", "évier", "fridge", "frigo", "galley"}},
	{models.FurnitureStorage, []string{"storage", "rangement", "cabinet", "placard", "closet", "wardrobe", "shelf", "etagere", "étagère", "drawer", "tiroir", "coffre", "locker"}},
	{models.FurnitureBed, []string{"bed", "lit", "sleep", "couchage", "matelas", "mattress", "bunk"}},
	{models.FurnitureTable, []string{"table", "desk", "bureau", "dinette", "worktop"}},
	{models.FurnitureSeat, []string{"seat", "siège", "siege", "chair", "chaise", "bench", "banquette", "sofa", "canapé", "canape", "couch"}},
}

const wholeWordMaxLen = 3

// ResolveType maps a free-form type string onto the closed enumeration:
// case-insensitive exact match first, then keyword matching, then custom.
func ResolveType(raw string) models.FurnitureType {
	if t, ok := models.ParseFurnitureType(raw); ok {
		return t
	}
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" {
		return models.FurnitureCustom
	}
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, alias := range typeAliases {
		for _, keyword := range alias.Keywords {
			if matchesKeyword(lower, words, keyword) {
				return alias.Type
			}
		}
	}
	return models.FurnitureCustom
}

func matchesKeyword(lower string, words []string, keyword string) bool {
	if utf8.RuneCountInString(keyword) > wholeWordMaxLen {
		return strings.Contains(lower, keyword)
	}
	return slices.Contains(words, keyword)
}

// toNumber accepts JSON numbers and numeric strings, with an optional "mm"
// suffix. Non-finite values are rejected.
func toNumber(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case int:
		f = float64(n)
	case string:
		s := strings.TrimSpace(strings.ToLower(n))
		s = strings.TrimSpace(strings.TrimSuffix(s, "mm"))
		s = strings.ReplaceAll(s, ",", ".")
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toString(v interface{}) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func toStringList(v interface{}) ([]string, bool) {
	list, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, entry := range list {
		if s, ok := toString(entry); ok {
			out = append(out, s)
		}
	}
	return out, true
}

// toRotation reads either a bare number (yaw) or a {yaw,pitch,roll} object.
func toRotation(v interface{}) *models.Rotation {
	if yaw, ok := toNumber(v); ok {
		return &models.Rotation{Yaw: yaw}
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	var rot models.Rotation
	found := false
	if yaw, ok := toNumber(obj["yaw"]); ok {
		rot.Yaw, found = yaw, true
	}
	if pitch, ok := toNumber(obj["pitch"]); ok {
		rot.Pitch, found = pitch, true
	}
	if roll, ok := toNumber(obj["roll"]); ok {
		rot.Roll, found = roll, true
	}
	if !found {
		return nil
	}
	return &rot
}
