package reconcile

import (
	"errors"
	"testing"
)

func TestValidateSavePayload(t *testing.T) {
	valid := []string{
		`{"sections": []}`,
		`{"sections": [{"type": "experience", "items": []}]}`,
		`{"sections": [{"type": "experience", "items": [{"id": "tmp-1", "title": "x"}]}]}`,
		`{"sections": [{"type": "experience", "items": [{"id": 12, "catalog": {"kind": "project", "id": 3}, "fields": {"role": "Lead"}}]}]}`,
	}
	for _, body := range valid {
		if err := ValidateSavePayload([]byte(body)); err != nil {
			t.Errorf("valid payload rejected: %s: %v", body, err)
		}
	}

	invalid := []string{
		`{}`,
		`{"sections": [{"items": []}]}`,
		`{"sections": [{"type": "experience"}]}`,
		`{"sections": [{"type": "experience", "items": [{"catalog": {"kind": "salary", "id": 1}}]}]}`,
		`{"sections": [{"type": "experience", "items": [{"catalog": {"kind": "project"}}]}]}`,
		`{"revision": "five", "sections": []}`,
	}
	for _, body := range invalid {
		var vErr *ValidationError
		if err := ValidateSavePayload([]byte(body)); !errors.As(err, &vErr) {
			t.Errorf("invalid payload accepted: %s (err %v)", body, err)
		}
	}

	if err := ValidateSavePayload([]byte(`not json`)); err == nil {
		t.Error("garbage body accepted")
	}
}
