package repository

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"invoicestore/internal/domain"
)

// isTimeField reports whether name is an invoice timestamp key.
func isTimeField(name string) bool {
	return name == "date" || name == "createdAt" || name == "updatedAt"
}

// decodeInvoice decodes one stored collection element. When the element does not
// decode as a whole, each field droppable accepts is tried on its own: a timestamp
// holding a plain YYYY-MM-DD day is rewritten, any other failing field is removed
// and decoding is retried. The removed field names are returned sorted.
func decodeInvoice(el json.RawMessage, droppable func(name string) bool) (domain.Invoice, []string, error) {
	var inv domain.Invoice
	err := json.Unmarshal(el, &inv)
	if err == nil {
		return inv, nil, nil
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(el, &fields) != nil || fields == nil {
		return domain.Invoice{}, nil, err
	}

	changed := false
	var dropped []string
	for name, value := range fields {
		if !droppable(name) || decodesAlone(name, value) {
			continue
		}
		changed = true
		if isTimeField(name) {
			if fixed, ok := dayTimestamp(value); ok {
				fields[name] = fixed
				continue
			}
		}
		delete(fields, name)
		dropped = append(dropped, name)
	}
	if !changed {
		return domain.Invoice{}, nil, err
	}

	repaired, mErr := json.Marshal(fields)
	if mErr != nil {
		return domain.Invoice{}, nil, mErr
	}
	inv = domain.Invoice{}
	if err := json.Unmarshal(repaired, &inv); err != nil {
		return domain.Invoice{}, nil, err
	}
	sort.Strings(dropped)
	return inv, dropped, nil
}

func decodesAlone(name string, value json.RawMessage) bool {
	single, err := json.Marshal(map[string]json.RawMessage{name: value})
	if err != nil {
		return false
	}
	var inv domain.Invoice
	return json.Unmarshal(single, &inv) == nil
}

func dayTimestamp(value json.RawMessage) (json.RawMessage, bool) {
	var s string
	if json.Unmarshal(value, &s) != nil {
		return nil, false
	}
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return nil, false
	}
	out, err := json.Marshal(t)
	if err != nil {
		return nil, false
	}
	return out, true
}
