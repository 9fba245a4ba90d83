// Package extract folds gateway extraction payloads into a LeadRecord.
package extract

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mwhitford/leadchat/internal/domain"
)

// Known extraction keys. Keys outside this set are ignored.
const (
	KeyName         = "name"
	KeyBusinessName = "businessName"
	KeyEmail        = "email"
	KeyPhone        = "phone"
	KeyTrade        = "trade"
	KeyTeamSize     = "teamSize"
	KeyCallHandling = "callHandling"
	KeyCallVolume   = "callVolume"
	KeyTicketValue  = "ticketValue"
	KeyHesitation   = "hesitation"
)

// Merge applies an extraction map to the lead record in place and recomputes
// the derived fields. The merge is monotone: keys absent from the map leave
// prior values untouched, and an empty extracted value never regresses a
// populated field. Malformed values are dropped field-by-field; a dropped
// field never aborts the rest of the merge.
func Merge(lead *domain.LeadRecord, extracted map[string]any, logger *zap.Logger) {
	if lead == nil || len(extracted) == 0 {
		return
	}

	for key, raw := range extracted {
		switch key {
		case KeyName:
			mergeString(&lead.Name, raw)
		case KeyBusinessName:
			mergeString(&lead.BusinessName, raw)
		case KeyEmail:
			mergeEmail(lead, raw, logger)
		case KeyPhone:
			mergeString(&lead.Phone, raw)
		case KeyTrade:
			mergeString(&lead.Trade, raw)
		case KeyTeamSize:
			mergeString(&lead.TeamSize, raw)
		case KeyCallHandling:
			mergeCallHandling(lead, raw, logger)
		case KeyCallVolume:
			mergeInt(&lead.CallVolume, key, raw, logger)
		case KeyTicketValue:
			mergeInt(&lead.TicketValue, key, raw, logger)
		case KeyHesitation:
			mergeString(&lead.Hesitation, raw)
		default:
			if logger != nil {
				logger.Debug("ignoring unknown extraction key", zap.String("key", key))
			}
		}
	}

	lead.Recompute()
}

// mergeString writes a non-empty string value, leaving the target untouched
// otherwise.
func mergeString(dst *string, raw any) {
	s, ok := raw.(string)
	if !ok {
		return
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	*dst = s
}

func mergeEmail(lead *domain.LeadRecord, raw any, logger *zap.Logger) {
	s, ok := raw.(string)
	if !ok {
		return
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if !strings.Contains(s, "@") || strings.ContainsAny(s, " \t") {
		if logger != nil {
			logger.Debug("dropping malformed email extraction")
		}
		return
	}
	lead.Email = s
}

func mergeCallHandling(lead *domain.LeadRecord, raw any, logger *zap.Logger) {
	s, ok := raw.(string)
	if !ok {
		return
	}
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return
	}
	switch domain.CallHandling(s) {
	case domain.CallHandlingMyself, domain.CallHandlingOfficeStaff,
		domain.CallHandlingAnsweringService, domain.CallHandlingVoicemail:
		lead.CallHandling = domain.CallHandling(s)
	default:
		// Free-text answers from the model still carry signal; keep them as
		// the enumeration-as-string value and let MissRate fall back.
		lead.CallHandling = domain.CallHandling(s)
		if logger != nil {
			logger.Debug("non-canonical call handling value", zap.String("value", s))
		}
	}
}

// mergeInt coerces numeric extraction values. JSON decoding hands numbers
// over as float64; option clicks may arrive as digit strings. Anything else,
// and any non-positive value, is dropped for that field only.
func mergeInt(dst *int, key string, raw any, logger *zap.Logger) {
	var v int
	switch n := raw.(type) {
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt32 {
			drop(key, logger)
			return
		}
		v = int(n)
	case int:
		v = n
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			drop(key, logger)
			return
		}
		v = parsed
	default:
		drop(key, logger)
		return
	}
	if v <= 0 {
		drop(key, logger)
		return
	}
	*dst = v
}

func drop(key string, logger *zap.Logger) {
	if logger != nil {
		logger.Debug("dropping malformed extraction value", zap.String("key", key))
	}
}
