package conversation

import "testing"

func TestParameterOverrides_Apply_PerField(t *testing.T) {
	t.Parallel()

	base := Parameters{Temperature: 0.7, MaxTokens: 1024, TopP: 1.0}

	if got := (*ParameterOverrides)(nil).Apply(base); got != base {
		t.Fatalf("nil overrides must return base unchanged, got %+v", got)
	}

	temp := 0.2
	pen := 0.5
	got := (&ParameterOverrides{Temperature: &temp, PresencePenalty: &pen}).Apply(base)
	if got.Temperature != 0.2 || got.PresencePenalty != 0.5 {
		t.Errorf("overrides not applied: %+v", got)
	}
	if got.MaxTokens != 1024 || got.TopP != 1.0 || got.FrequencyPenalty != 0 {
		t.Errorf("unset fields must keep base values: %+v", got)
	}

	zero := 0.0
	got = (&ParameterOverrides{Temperature: &zero}).Apply(base)
	if got.Temperature != 0 {
		t.Errorf("explicit zero override must win over base, got %v", got.Temperature)
	}
}

func TestMetadata_Tags_AcceptsBothSliceShapes(t *testing.T) {
	t.Parallel()

	// Freshly built metadata carries []string; metadata read back from a
	// JSON file carries []any.
	fresh := Metadata{"tags": []string{"a", "b"}}
	decoded := Metadata{"tags": []any{"a", "b"}}

	for _, m := range []Metadata{fresh, decoded} {
		tags := m.Tags()
		if len(tags) != 2 || tags[0] != "a" || tags[1] != "b" {
			t.Errorf("unexpected tags %v", tags)
		}
	}

	if tags := (Metadata{}).Tags(); tags != nil {
		t.Errorf("expected nil tags for absent entry, got %v", tags)
	}
}

func TestMetadata_HasTags(t *testing.T) {
	t.Parallel()

	m := Metadata{"tags": []string{"work", "draft"}}
	if !m.HasTags([]string{"work"}) {
		t.Error("expected single present tag to match")
	}
	if !m.HasTags(nil) {
		t.Error("expected empty filter to match")
	}
	if m.HasTags([]string{"work", "other"}) {
		t.Error("expected missing tag to fail the match")
	}
}
