package utils

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidPhone = errors.New("invalid Kenyan phone number. Use format: +254712345678 or 0712345678")

// Counties lists the 47 counties of Kenya.
var Counties = []string{
	"Baringo", "Bomet", "Bungoma", "Busia", "Elgeyo-Marakwet",
	"Embu", "Garissa", "Homa Bay", "Isiolo", "Kajiado",
	"Kakamega", "Kericho", "Kiambu", "Kilifi", "Kirinyaga",
	"Kisii", "Kisumu", "Kitui", "Kwale", "Laikipia",
	"Lamu", "Machakos", "Makueni", "Mandera", "Marsabit",
	"Meru", "Migori", "Mombasa", "Murang'a", "Nairobi",
	"Nakuru", "Nandi", "Narok", "Nyamira", "Nyandarua",
	"Nyeri", "Samburu", "Siaya", "Taita-Taveta", "Tana River",
	"Tharaka-Nithi", "Trans-Nzoia", "Turkana", "Uasin Gishu",
	"Vihiga", "Wajir", "West Pokot",
}

// Regions groups counties into the eight former provinces.
var Regions = map[string][]string{
	"Nairobi": {"Nairobi"},
	"Coast":   {"Mombasa", "Kilifi", "Kwale", "Taita-Taveta", "Lamu", "Tana River"},
	"Central": {"Kiambu", "Murang'a", "Nyeri", "Kirinyaga", "Nyandarua"},
	"Eastern": {"Embu", "Meru", "Tharaka-Nithi", "Kitui", "Machakos", "Makueni", "Isiolo", "Marsabit"},
	"Western": {"Kakamega", "Bungoma", "Busia", "Vihiga"},
	"Nyanza":  {"Kisumu", "Siaya", "Homa Bay", "Migori", "Kisii", "Nyamira"},
	"Rift Valley": {
		"Nakuru", "Narok", "Kajiado", "Kericho", "Bomet", "Nandi",
		"Uasin Gishu", "Trans-Nzoia", "Elgeyo-Marakwet", "Baringo",
		"Laikipia", "Samburu", "West Pokot", "Turkana",
	},
	"North Eastern": {"Garissa", "Wajir", "Mandera"},
}

func IsCounty(name string) bool {
	for _, c := range Counties {
		if c == name {
			return true
		}
	}
	return false
}

// ExpandRegions replaces region names with their counties. County names pass
// through unchanged and the result keeps first-seen order without duplicates.
func ExpandRegions(items []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(items))
	add := func(c string) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, item := range items {
		if counties, ok := Regions[item]; ok {
			for _, c := range counties {
				add(c)
			}
			continue
		}
		add(item)
	}
	return out
}

var phoneStrip = regexp.MustCompile(`[\s\-\(\)]`)

// NormalizePhone converts a Kenyan number to +254XXXXXXXXX.
func NormalizePhone(phone string) (string, error) {
	p := phoneStrip.ReplaceAllString(phone, "")
	switch {
	case strings.HasPrefix(p, "+254"):
	case strings.HasPrefix(p, "254"):
		p = "+" + p
	case strings.HasPrefix(p, "0") && len(p) == 10:
		p = "+254" + p[1:]
	default:
		return "", ErrInvalidPhone
	}
	if len(p) != 13 || !IsNumeric(p[1:]) {
		return "", ErrInvalidPhone
	}
	return p, nil
}

// MaskPhone hides all but the last three digits.
func MaskPhone(phone string) string {
	if len(phone) <= 7 {
		return phone
	}
	return phone[:4] + strings.Repeat("*", len(phone)-7) + phone[len(phone)-3:]
}
