package locale

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name      string
		languages []string
		want      string
	}{
		{"india", []string{"en-IN"}, "INR"},
		{"hindi infers india", []string{"hi"}, "INR"},
		{"uk", []string{"en-GB", "en-US"}, "GBP"},
		{"japan", []string{"ja-JP"}, "JPY"},
		{"germany", []string{"de-DE"}, "EUR"},
		{"france", []string{"fr-FR"}, "EUR"},
		{"us", []string{"en-US"}, "USD"},
		{"only first counts", []string{"en-US", "en-IN"}, "USD"},
		{"unmapped region", []string{"pt-BR"}, "USD"},
		{"empty list", nil, "USD"},
		{"blank tag", []string{"  "}, "USD"},
		{"unparsable with hint", []string{"xx_invalid_tag_in"}, "INR"},
		{"unparsable without hint", []string{"!!!"}, "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.languages); got != tt.want {
				t.Errorf("Detect(%v) = %q, want %q", tt.languages, got, tt.want)
			}
		})
	}
}

func TestFromAcceptLanguage(t *testing.T) {
	got := FromAcceptLanguage("en-US;q=0.5, en-GB")
	if len(got) != 2 || got[0] != "en-GB" {
		t.Errorf("FromAcceptLanguage = %v, want en-GB first", got)
	}
	if FromAcceptLanguage("") != nil {
		t.Error("empty header should yield nil")
	}
}
