package launch

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"drop-live/internal/apperr"
	"drop-live/internal/domain"
)

// Field limits.
const (
	MaxNameLength        = 32
	MaxSymbolLength      = 10
	MaxDescriptionLength = 1000
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)

// DraftSpec is the creator input of a new drop.
type DraftSpec struct {
	Name               string `json:"name"`
	Symbol             string `json:"symbol"`
	Description        string `json:"description"`
	ImageURL           string `json:"imageUrl"`
	Website            string `json:"website"`
	Twitter            string `json:"twitter"`
	Telegram           string `json:"telegram"`
	CreatorBps         int    `json:"creatorBps"`
	PrizePoolBps       int    `json:"prizePoolBps"`
	ThresholdRaw       string `json:"thresholdRaw"`
	InitialBuyLamports string `json:"initialBuyLamports"`
}

// normalize trims input and applies defaults.
func (s DraftSpec) normalize() DraftSpec {
	s.Name = strings.TrimSpace(s.Name)
	s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
	s.Description = strings.TrimSpace(s.Description)
	s.ImageURL = strings.TrimSpace(s.ImageURL)
	s.Website = strings.TrimSpace(s.Website)
	s.Twitter = strings.TrimSpace(s.Twitter)
	s.Telegram = strings.TrimSpace(s.Telegram)
	s.ThresholdRaw = strings.TrimSpace(s.ThresholdRaw)
	s.InitialBuyLamports = strings.TrimSpace(s.InitialBuyLamports)
	if s.ThresholdRaw == "" {
		s.ThresholdRaw = "0"
	}
	if s.InitialBuyLamports == "" {
		s.InitialBuyLamports = "0"
	}
	return s
}

// validate returns every offending field with a reason.
func (s DraftSpec) validate() map[string]string {
	fields := make(map[string]string)

	if n := utf8.RuneCountInString(s.Name); n == 0 || n > MaxNameLength {
		fields["name"] = "must be 1-32 characters"
	} else if !isPrintable(s.Name) {
		fields["name"] = "must contain printable characters only"
	}
	if !symbolPattern.MatchString(s.Symbol) {
		fields["symbol"] = "must be 1-10 characters of A-Z and 0-9"
	}
	if utf8.RuneCountInString(s.Description) > MaxDescriptionLength {
		fields["description"] = "must be at most 1000 characters"
	}

	for field, v := range map[string]string{
		"imageUrl": s.ImageURL,
		"website":  s.Website,
		"twitter":  s.Twitter,
		"telegram": s.Telegram,
	} {
		if v != "" && !isHTTPURL(v) {
			fields[field] = "must be an http or https URL"
		}
	}

	if s.CreatorBps < 0 || s.CreatorBps > domain.TotalBps {
		fields["creatorBps"] = "must be between 0 and 10000"
	}
	if s.PrizePoolBps < 0 || s.PrizePoolBps > domain.TotalBps {
		fields["prizePoolBps"] = "must be between 0 and 10000"
	}
	_, badCreator := fields["creatorBps"]
	_, badPrize := fields["prizePoolBps"]
	if !badCreator && !badPrize && s.CreatorBps+s.PrizePoolBps != domain.TotalBps {
		fields["prizePoolBps"] = "creatorBps and prizePoolBps must sum to 10000"
	}

	if _, err := domain.ParseAmount(s.ThresholdRaw); err != nil {
		fields["thresholdRaw"] = "must be a non-negative integer"
	}
	if _, err := domain.ParseAmount(s.InitialBuyLamports); err != nil {
		fields["initialBuyLamports"] = "must be a non-negative integer"
	}

	return fields
}

func isPrintable(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// validateThreshold checks a raw threshold amount.
func validateThreshold(raw string) error {
	if _, err := domain.ParseAmount(raw); err != nil {
		return apperr.InvalidField("thresholdRaw", "must be a non-negative integer")
	}
	return nil
}
