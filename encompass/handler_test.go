package encompass

import (
	"bytes"
	"testing"

	"github.com/grailbio/encompass/feature"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestNewHandlerValidation(t *testing.T) {
	_, err := NewHandler(HandlerOpts{CountAllEncompassed: true})
	expect.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "TrackAllEncompassed")

	_, err = NewHandler(HandlerOpts{CountAllEncompassed: true, TrackAllEncompassed: true})
	expect.NoError(t, err)
}

func TestAddSupplementalHandlerValidation(t *testing.T) {
	h, err := NewHandler(HandlerOpts{})
	assert.NoError(t, err)
	h.AddEncompassedIdentityStratifier("Encompassed_Feature")
	h.AddPlaceholderStratifier(Tolerate, "")

	expect.NoError(t, h.AddSupplementalHandler(0, NewSiteNamesHandler("TFBS")))
	err = h.AddSupplementalHandler(1, NewSiteNamesHandler("TFBS"))
	expect.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "last stratifier")
	err = h.AddSupplementalHandler(5, NewSiteNamesHandler("TFBS"))
	expect.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "out of range")
}

func TestCreateWriterIncrementalValidation(t *testing.T) {
	// Too few stratifiers.
	h, err := NewHandler(HandlerOpts{Incremental: IncrementalEncompassed})
	assert.NoError(t, err)
	h.AddEncompassedIdentityStratifier("Encompassed_Feature")
	var buf bytes.Buffer
	err = h.CreateWriter(NewWriter(&buf, WriterOpts{}))
	expect.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "at least 2 stratifiers")

	// Wrong leading stratifier.
	h, err = NewHandler(HandlerOpts{Incremental: IncrementalEncompassed})
	assert.NoError(t, err)
	h.AddStrandComparisonStratifier(Tolerate, "Strand_Comparison")
	h.AddPlaceholderStratifier(Tolerate, "")
	err = h.CreateWriter(NewWriter(&buf, WriterOpts{}))
	expect.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "leading encompassed-identity")

	h, err = NewHandler(HandlerOpts{Incremental: IncrementalEncompassing})
	assert.NoError(t, err)
	h.AddEncompassedIdentityStratifier("Encompassed_Feature")
	h.AddPlaceholderStratifier(Tolerate, "")
	err = h.CreateWriter(NewWriter(&buf, WriterOpts{}))
	expect.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "leading encompassing-identity")
}

func TestCompact(t *testing.T) {
	h, err := NewHandler(HandlerOpts{})
	assert.NoError(t, err)
	h.AddEncompassedIdentityStratifier("Encompassed_Feature")
	h.AddPlaceholderStratifier(Tolerate, "")

	rec := &feature.Encompassed{Chrom: "chr1", Pos: 5, Strand: '+'}
	tr := h.newTracked(rec)
	span := &feature.Encompassing{Chrom: "chr1", Start: 0, End: 9, Strand: '+'}
	assert.NoError(t, h.encompassed(tr, span, false))
	assert.EQ(t, len(h.root.children), 1)

	// Simulate an incremental flush, then compact the emptied branch.
	k := FeatureKey(rec)
	h.root.children[k].counts = nil
	h.Compact()
	expect.EQ(t, len(h.root.children), 0)
}

func TestKeyOrdering(t *testing.T) {
	keys := []Key{
		KeyAmbiguous,
		NumKey(2),
		NumKey(-1.5),
		NumKey(0),
	}
	sortKeys(keys)
	expect.EQ(t, keys[0], NumKey(-1.5))
	expect.EQ(t, keys[1], NumKey(0))
	expect.EQ(t, keys[2], NumKey(2))
	expect.EQ(t, keys[3], KeyAmbiguous)

	bools := []Key{BoolKey(false), KeyAmbiguous, BoolKey(true)}
	sortKeys(bools)
	expect.EQ(t, bools[0], BoolKey(true))
	expect.EQ(t, bools[1], BoolKey(false))
	expect.EQ(t, bools[2], KeyAmbiguous)

	spans := []Key{
		SpanKey(&feature.Encompassing{Chrom: "chr2", Start: 0, End: 9}),
		SpanKey(&feature.Encompassing{Chrom: "chr1", Start: 5, End: 9}),
		SpanKey(&feature.Encompassing{Chrom: "chr1", Start: 0, End: 9}),
	}
	sortKeys(spans)
	expect.EQ(t, spans[0].str, "chr1")
	expect.EQ(t, spans[0].num, 0.0)
	expect.EQ(t, spans[2].str, "chr2")
}

func TestKeyString(t *testing.T) {
	expect.EQ(t, KeyNone.String(), "None")
	expect.EQ(t, KeyAmbiguous.String(), "Ambiguous")
	expect.EQ(t, NumKey(4.5).String(), "4.5")
	expect.EQ(t, BoolKey(true).String(), "true")
	expect.EQ(t, StringKey("TCG").String(), "TCG")
	rec := &feature.Encompassed{Chrom: "chr1", Pos: 10.5, Strand: '-'}
	expect.EQ(t, FeatureKey(rec).String(), "chr1:10.5(-)")
	span := &feature.Encompassing{Chrom: "chr1", Start: 0, End: 9, Strand: '+'}
	expect.EQ(t, SpanKey(span).String(), "chr1:0-9(+)")
}
