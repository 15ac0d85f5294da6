package detect

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overshare-io/overshare/internal/annotate"
	"github.com/overshare-io/overshare/internal/ner"
	"github.com/overshare-io/overshare/internal/taxonomy"
)

func spansByCategory(spans []annotate.Span) map[taxonomy.Category][]annotate.Span {
	m := make(map[taxonomy.Category][]annotate.Span)
	for _, s := range spans {
		m[s.Category] = append(m[s.Category], s)
	}
	return m
}

func spanTexts(spans []annotate.Span) []string {
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		out = append(out, s.Text)
	}
	return out
}

func TestScanPhoneAndTimeWord(t *testing.T) {
	scanner := MustNewScanner()
	text := "Call me at 555-214-7821 — I am at noon."

	byCat := spansByCategory(scanner.Scan(context.Background(), text))

	assert.Contains(t, spanTexts(byCat[taxonomy.ContactIDs]), "555-214-7821")
	assert.Contains(t, spanTexts(byCat[taxonomy.LocationTime]), "noon")
}

func TestScanSSNExactlyOneGovSpan(t *testing.T) {
	scanner := MustNewScanner()
	text := "Utility wants my SSN: 123-45-6789."

	byCat := spansByCategory(scanner.Scan(context.Background(), text))

	gov := byCat[taxonomy.GovFinancial]
	require.Len(t, gov, 1)
	assert.Equal(t, "123-45-6789", gov[0].Text)
	assert.Equal(t, text[gov[0].Start:gov[0].End], gov[0].Text)
}

func TestScanEmail(t *testing.T) {
	scanner := MustNewScanner()
	byCat := spansByCategory(scanner.Scan(context.Background(), "Reach me at Jane.Doe+spam@Example.COM please"))
	assert.Contains(t, spanTexts(byCat[taxonomy.ContactIDs]), "Jane.Doe+spam@Example.COM")
}

func TestScanPINRequiresCredentialWord(t *testing.T) {
	scanner := MustNewScanner()
	ctx := context.Background()

	// A bare 4-digit number with no credential trigger anywhere is noise.
	byCat := spansByCategory(scanner.Scan(ctx, "We moved here in 1998 and love it."))
	assert.Empty(t, byCat[taxonomy.Credentials])

	// The same token with a trigger word anywhere in the post is flagged.
	byCat = spansByCategory(scanner.Scan(ctx, "Door PIN is 4421, come on up"))
	assert.Contains(t, spanTexts(byCat[taxonomy.Credentials]), "4421")
}

func TestScanOTPRequiresCredentialWord(t *testing.T) {
	scanner := MustNewScanner()
	ctx := context.Background()

	byCat := spansByCategory(scanner.Scan(ctx, "The otp I got is 918274, hurry"))
	assert.Contains(t, spanTexts(byCat[taxonomy.Credentials]), "918274")

	byCat = spansByCategory(scanner.Scan(ctx, "Population grew to 918274 last year"))
	assert.Empty(t, byCat[taxonomy.Credentials])
}

func TestScanCardProximityGate(t *testing.T) {
	scanner := MustNewScanner()
	ctx := context.Background()

	// Digit run with a nearby card keyword is flagged.
	byCat := spansByCategory(scanner.Scan(ctx, "my visa is 4111 1111 1111 1111 ok"))
	require.NotEmpty(t, byCat[taxonomy.GovFinancial])

	// Same digits with no trigger within the window are discarded as noise.
	byCat = spansByCategory(scanner.Scan(ctx, "serial dump 4111 1111 1111 1111 from the machine"))
	assert.Empty(t, byCat[taxonomy.GovFinancial])
}

func TestScanPasswordAssignment(t *testing.T) {
	scanner := MustNewScanner()
	byCat := spansByCategory(scanner.Scan(context.Background(), "WiFi password: BlueHouse!9"))
	require.NotEmpty(t, byCat[taxonomy.Credentials])
}

func TestScanStripeAndSlackTokens(t *testing.T) {
	scanner := MustNewScanner()
	byCat := spansByCategory(scanner.Scan(context.Background(),
		"accidentally pasted sk_live_a1B2c3D4e5 and xoxb-123-abc in chat"))

	texts := spanTexts(byCat[taxonomy.Credentials])
	assert.Contains(t, texts, "sk_live_a1B2c3D4e5")
	assert.Contains(t, texts, "xoxb-123-abc")
}

func TestScanAddressHintNeedsPrefix(t *testing.T) {
	scanner := MustNewScanner()
	ctx := context.Background()

	// At the very start of a post the suffix could be the tail of an
	// unrelated word; it is rejected.
	byCat := spansByCategory(scanner.Scan(ctx, " ave today"))
	for _, s := range byCat[taxonomy.ContactIDs] {
		assert.GreaterOrEqual(t, s.Start, 10)
	}

	byCat = spansByCategory(scanner.Scan(ctx, "Meet me over on maple ave around five"))
	assert.NotEmpty(t, byCat[taxonomy.ContactIDs])
}

func TestScanStreetAddress(t *testing.T) {
	scanner := MustNewScanner()
	byCat := spansByCategory(scanner.Scan(context.Background(), "package to 42 Maple Grove Street thanks"))
	assert.Contains(t, spanTexts(byCat[taxonomy.ContactIDs]), "42 Maple Grove Street")
}

func TestScanMetadataCodes(t *testing.T) {
	scanner := MustNewScanner()
	ctx := context.Background()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"vin", "selling my car 1HGBH41JXMN109186 cheap", "1HGBH41JXMN109186"},
		{"tracking", "out for delivery, see 1Z999AA10123456784", "1Z999AA10123456784"},
		{"reservation code", "Boarding pass code AB12-CD34 in my stories", "AB12-CD34"},
		{"qr", "QR in pic", "QR"},
		{"serial", "router label says SN-20AB44X under the barcode", "SN-20AB44X"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			byCat := spansByCategory(scanner.Scan(ctx, tt.text))
			assert.Contains(t, spanTexts(byCat[taxonomy.MetadataDevice]), tt.want)
		})
	}
}

func TestScanHealthWorkMinorKeywords(t *testing.T) {
	scanner := MustNewScanner()
	byCat := spansByCategory(scanner.Scan(context.Background(),
		"My therapist says the NDA stress is affecting my son's grades"))

	assert.Contains(t, spanTexts(byCat[taxonomy.HealthSensitiv]), "therapist")
	assert.Contains(t, spanTexts(byCat[taxonomy.Workplace]), "NDA")
	assert.Contains(t, spanTexts(byCat[taxonomy.Minors]), "my son")
}

func TestScanKeywordMatchesAreCaseInsensitiveAndGrounded(t *testing.T) {
	scanner := MustNewScanner()
	text := "TONIGHT we celebrate, Tonight!"

	byCat := spansByCategory(scanner.Scan(context.Background(), text))
	spans := byCat[taxonomy.LocationTime]
	require.NotEmpty(t, spans)
	for _, s := range spans {
		assert.Equal(t, text[s.Start:s.End], s.Text, "span text must be the original-case slice")
	}
}

func TestScanEmptyAndWeirdInput(t *testing.T) {
	scanner := MustNewScanner()
	ctx := context.Background()

	assert.Empty(t, scanner.Scan(ctx, ""))
	assert.NotPanics(t, func() {
		scanner.Scan(ctx, "\x00\xff\xfe unpaired \xc3 bytes")
	})
}

func TestScanDeterministic(t *testing.T) {
	scanner := MustNewScanner()
	ctx := context.Background()
	text := "Call 555-214-7821 at noon, pin 4421, password: hunter2, my toddler naps at 2pm"

	first := scanner.Scan(ctx, text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, scanner.Scan(ctx, text))
	}
}

type fakeRecognizer struct {
	entities []ner.Entity
	err      error
}

func (f *fakeRecognizer) Entities(_ context.Context, _ string) ([]ner.Entity, error) {
	return f.entities, f.err
}

func TestScanEntityMapping(t *testing.T) {
	text := "Drinks at Blue Finch Cafe with folks from Acme University tomorrow"
	cafeStart := strings.Index(text, "Blue Finch Cafe")
	orgStart := strings.Index(text, "Acme University")
	rec := &fakeRecognizer{entities: []ner.Entity{
		{Tag: ner.TagFAC, Start: cafeStart, End: cafeStart + len("Blue Finch Cafe"), Text: "Blue Finch Cafe"},
		{Tag: ner.TagORG, Start: orgStart, End: orgStart + len("Acme University"), Text: "Acme University"},
		{Tag: ner.TagORG, Start: 0, End: 6, Text: "Drinks"}, // no institutional keyword
		{Tag: "PERSON", Start: 0, End: 6, Text: "Drinks"},   // unconsumed tag
	}}

	scanner := MustNewScanner(WithRecognizer(rec))
	byCat := spansByCategory(scanner.Scan(context.Background(), text))

	assert.Contains(t, spanTexts(byCat[taxonomy.LocationTime]), "Blue Finch Cafe")
	assert.Contains(t, spanTexts(byCat[taxonomy.Workplace]), "Acme University")
	for _, s := range byCat[taxonomy.Workplace] {
		assert.NotEqual(t, "Drinks", s.Text)
	}
}

func TestScanEntityInvalidBoundsDropped(t *testing.T) {
	rec := &fakeRecognizer{entities: []ner.Entity{
		{Tag: ner.TagLOC, Start: -1, End: 4},
		{Tag: ner.TagLOC, Start: 3, End: 3},
		{Tag: ner.TagLOC, Start: 0, End: 5000},
	}}
	scanner := MustNewScanner(WithRecognizer(rec))
	byCat := spansByCategory(scanner.Scan(context.Background(), "short text"))
	assert.Empty(t, byCat[taxonomy.LocationTime])
}

func TestScanRecognizerErrorDegrades(t *testing.T) {
	rec := &fakeRecognizer{err: errors.New("sidecar down")}
	scanner := MustNewScanner(WithRecognizer(rec))

	byCat := spansByCategory(scanner.Scan(context.Background(), "Call 555-214-7821"))
	assert.NotEmpty(t, byCat[taxonomy.ContactIDs], "rule detectors still run when NER fails")
}
