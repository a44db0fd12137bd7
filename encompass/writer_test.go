package encompass

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestWriterCustomNames(t *testing.T) {
	h, err := NewHandler(HandlerOpts{})
	assert.NoError(t, err)
	h.AddStrandComparisonStratifier(Tolerate, "Strand_Comparison")
	h.AddPlaceholderStratifier(Tolerate, "")

	wopts := WriterOpts{
		CustomNames: []map[Key]string{
			{BoolKey(true): "Same_Strand", BoolKey(false): "Opposite_Strand"},
			nil,
		},
	}
	out := runCount(t, h, wopts,
		"chr1\t5\t6\t.\t.\t+\n",
		"chr1\t0\t10\t.\t.\t+\n",
		DefaultOpts)
	expect.EQ(t, out, "Strand_Comparison\tCounts\nSame_Strand\t1\nOpposite_Strand\t0\n")
}

func TestWriterCustomNamesCountMismatch(t *testing.T) {
	h, err := NewHandler(HandlerOpts{})
	assert.NoError(t, err)
	h.AddStrandComparisonStratifier(Tolerate, "Strand_Comparison")
	h.AddPlaceholderStratifier(Tolerate, "")

	var buf bytes.Buffer
	err = h.CreateWriter(NewWriter(&buf, WriterOpts{
		CustomNames: []map[Key]string{nil},
	}))
	expect.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "custom name")
}

func TestWriterReservedSentinelName(t *testing.T) {
	h, err := NewHandler(HandlerOpts{})
	assert.NoError(t, err)
	h.AddStrandComparisonStratifier(Tolerate, "Strand_Comparison")
	h.AddPlaceholderStratifier(Tolerate, "")

	var buf bytes.Buffer
	err = h.CreateWriter(NewWriter(&buf, WriterOpts{
		CustomNames: []map[Key]string{{KeyAmbiguous: "?"}, nil},
	}))
	expect.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "ambiguous")
}

func TestWriterDerivedColumns(t *testing.T) {
	h, err := NewHandler(HandlerOpts{})
	assert.NoError(t, err)
	h.AddStrandComparisonStratifier(Tolerate, "Strand_Comparison")

	derived := &DerivedColumns{
		Headers: []string{"Both_Strands"},
		Compute: func(cells []string, path []Key) []string {
			total := 0
			for _, c := range cells {
				if n, err := strconv.Atoi(c); err == nil {
					total += n
				}
			}
			return []string{strconv.Itoa(total)}
		},
	}
	out := runCount(t, h, WriterOpts{Derived: derived},
		"chr1\t5\t6\t.\t.\t+\nchr1\t7\t8\t.\t.\t-\n",
		"chr1\t0\t10\t.\t.\t+\n",
		DefaultOpts)
	expect.EQ(t, out, "true\tfalse\tBoth_Strands\n1\t1\t2\n")
}

func TestWriterPreserveSource(t *testing.T) {
	h, err := NewHandler(HandlerOpts{Incremental: IncrementalEncompassed, TrackAllEncompassed: true})
	assert.NoError(t, err)
	h.AddEncompassedIdentityStratifier("Encompassed_Feature")
	h.AddPlaceholderStratifier(Tolerate, "")

	out := runCount(t, h, WriterOpts{PreserveSource: true},
		"chr1\t10\t11\nchr1\t30\t31\n",
		"chr1\t0\t20\n",
		plusStrandOpts())
	// Headerless: each row echoes the source record with the count
	// appended.
	expect.EQ(t, out, "chr1\t10\t11\t1\nchr1\t30\t31\t0\n")
}

func TestWriterSubs(t *testing.T) {
	h, err := NewHandler(HandlerOpts{Incremental: IncrementalEncompassed, TrackAllEncompassed: true})
	assert.NoError(t, err)
	h.AddEncompassedIdentityStratifier("Encompassed_Feature")
	h.AddPlaceholderStratifier(Tolerate, "")

	// Substitute the count into the score column of a 5-column record.
	out := runCount(t, h, WriterOpts{PreserveSource: true, Subs: []int{SubAppend, 4}},
		"chr1\t10\t11\tx\t.\nchr1\t30\t31\ty\t.\n",
		"chr1\t0\t20\tspan\t.\n",
		plusStrandOpts())
	expect.EQ(t, out, "chr1\t10\t11\tx\t1\nchr1\t30\t31\ty\t0\n")
}

func TestWriterSubsDrop(t *testing.T) {
	h, err := NewHandler(HandlerOpts{Incremental: IncrementalEncompassed, TrackAllEncompassed: true})
	assert.NoError(t, err)
	h.AddEncompassedIdentityStratifier("Encompassed_Feature")
	h.AddPlaceholderStratifier(Tolerate, "")

	out := runCount(t, h, WriterOpts{PreserveSource: true, Subs: []int{SubAppend, SubDrop}},
		"chr1\t10\t11\n",
		"chr1\t0\t20\n",
		plusStrandOpts())
	expect.EQ(t, out, "chr1\t10\t11\n")
}

func TestWriterSubsValidation(t *testing.T) {
	h, err := NewHandler(HandlerOpts{})
	assert.NoError(t, err)
	h.AddEncompassedIdentityStratifier("Encompassed_Feature")
	h.AddPlaceholderStratifier(Tolerate, "")

	// Subs without PreserveSource.
	var buf bytes.Buffer
	err = h.CreateWriter(NewWriter(&buf, WriterOpts{Subs: []int{SubAppend, SubAppend}}))
	expect.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "PreserveSource")

	// PreserveSource without incremental writing.
	err = h.CreateWriter(NewWriter(&buf, WriterOpts{PreserveSource: true}))
	expect.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "incremental")
}

func TestWriterSubsLengthMismatch(t *testing.T) {
	h, err := NewHandler(HandlerOpts{Incremental: IncrementalEncompassed})
	assert.NoError(t, err)
	h.AddEncompassedIdentityStratifier("Encompassed_Feature")
	h.AddPlaceholderStratifier(Tolerate, "")

	var buf bytes.Buffer
	err = h.CreateWriter(NewWriter(&buf, WriterOpts{PreserveSource: true, Subs: []int{SubAppend}}))
	expect.NotNil(t, err)
	expect.HasSubstr(t, err.Error(), "Subs")
}

// Re-summing the written table recovers the in-memory event count.
func TestFormattingConservation(t *testing.T) {
	h, err := NewHandler(HandlerOpts{TrackAllEncompassing: true})
	assert.NoError(t, err)
	h.AddEncompassingIdentityStratifier(Tolerate, "Encompassing_Feature")
	h.AddStrandComparisonStratifier(Tolerate, "Strand_Comparison")
	h.AddPlaceholderStratifier(Tolerate, "")

	out := runCount(t, h, WriterOpts{},
		"chr1\t1\t2\t.\t.\t+\nchr1\t5\t6\t.\t.\t-\nchr1\t25\t26\t.\t.\t+\n",
		"chr1\t0\t10\t.\t.\t+\nchr1\t20\t30\t.\t.\t-\n",
		DefaultOpts)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	total := 0
	for _, line := range lines[1:] {
		cells := strings.Split(line, "\t")
		n, err := strconv.Atoi(cells[len(cells)-1])
		assert.NoError(t, err)
		total += n
	}
	expect.EQ(t, total, 3)
}
