package features

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
	"industry": "J", "occupation": 2, "yrs_qual": 16, "sex": 1, "highest_qual": 12,
	"area_of_study": 5, "influencing": 3, "negotiating": 3, "sector": 1,
	"workforce_change": 1, "no_subordinates": 1, "choose_hours": 3, "choose_method": 4,
	"job_quals": 12, "qual_needed": 1, "experience_needed": 4, "keeping_current": 4,
	"satisfaction": 2, "advising": 3, "instructing": 2, "problem_solving_quick": 4,
	"problem_solving_long": 4, "labour": 1, "manual_skill": 2, "computer": 1,
	"group_meetings": 1, "computer_level": 2
}`

func sampleMap(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(sampleJSON), &m))
	return m
}

func TestTransformSampleRecord(t *testing.T) {
	t.Parallel()

	d, err := TransformMap(sampleMap(t))
	require.NoError(t, err)

	require.True(t, d.HasIndustryName)
	require.Equal(t, "Information", d.IndustryName)
	require.Equal(t, (3.0+3.0+1.0)/3, d.LeadershipScore)
	require.Equal(t, 4.0, d.ProblemSolvingScore)
	require.Equal(t, 3.5, d.AutonomyScore)
	require.Equal(t, 2.5, d.TeachingScore)
	require.Equal(t, 1.0, d.EducationPremium)
	require.Equal(t, 16.0/12.0, d.EducationEfficiency)
}

func TestTransformIsDeterministic(t *testing.T) {
	t.Parallel()

	first, err := TransformMap(sampleMap(t))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := TransformMap(sampleMap(t))
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestTransformMeansStayWithinInputRange(t *testing.T) {
	t.Parallel()

	inputs := [][3]float64{
		{0, 0, 0},
		{1, 5, 3},
		{-2, 7, 0.5},
		{1e9, 1e-9, 42},
		{0.1, 0.2, 0.3},
	}
	for _, in := range inputs {
		raw := RawRecord{
			Industry:            "A",
			Influencing:         in[0],
			Negotiating:         in[1],
			NoSubordinates:      in[2],
			ProblemSolvingQuick: in[0],
			ProblemSolvingLong:  in[1],
			ChooseHours:         in[1],
			ChooseMethod:        in[2],
			Advising:            in[2],
			Instructing:         in[0],
			HighestQual:         1,
			JobQuals:            1,
		}
		d, err := Transform(raw)
		require.NoError(t, err)
		requireBetween(t, d.LeadershipScore, in[0], in[1], in[2])
		requireBetween(t, d.ProblemSolvingScore, in[0], in[1])
		requireBetween(t, d.AutonomyScore, in[1], in[2])
		requireBetween(t, d.TeachingScore, in[2], in[0])
	}
}

func requireBetween(t *testing.T, got float64, parts ...float64) {
	t.Helper()
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range parts {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	require.GreaterOrEqual(t, got, lo)
	require.LessOrEqual(t, got, hi)
}

func TestTransformUnknownIndustryIsMissingNotError(t *testing.T) {
	t.Parallel()

	m := sampleMap(t)
	m["industry"] = "Z"
	d, err := TransformMap(m)
	require.NoError(t, err)
	require.False(t, d.HasIndustryName)

	v, ok := d.Lookup(FeatureIndustryName)
	require.True(t, ok)
	require.True(t, v.Missing)
}

func TestTransformZeroDenominators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field string
		want  string
	}{
		{name: "job quals", field: FieldJobQuals, want: FeatureEducationPremium},
		{name: "highest qual", field: FieldHighestQual, want: FeatureEducationEfficiency},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := sampleMap(t)
			m[tt.field] = 0.0
			_, err := TransformMap(m)
			var arith *ArithmeticError
			require.True(t, errors.As(err, &arith), "expected ArithmeticError, got %v", err)
			require.Equal(t, tt.want, arith.Feature)
			require.Equal(t, tt.field, arith.Denominator)
		})
	}
}

func TestParseRecordMissingField(t *testing.T) {
	t.Parallel()

	m := sampleMap(t)
	delete(m, FieldSatisfaction)
	_, err := ParseRecord(m)
	var missing *MissingFieldError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, FieldSatisfaction, missing.Field)

	_, err = ParseRecord(map[string]any{})
	require.True(t, errors.As(err, &missing))
	require.Equal(t, FieldIndustry, missing.Field)
}

func TestParseRecordInvalidTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field string
		value any
	}{
		{name: "numeric as string", field: FieldYrsQual, value: "16"},
		{name: "null number", field: FieldSex, value: nil},
		{name: "numeric industry", field: FieldIndustry, value: 10.0},
		{name: "long industry code", field: FieldIndustry, value: "JJ"},
		{name: "empty industry code", field: FieldIndustry, value: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := sampleMap(t)
			m[tt.field] = tt.value
			_, err := ParseRecord(m)
			var invalid *InvalidFieldError
			require.True(t, errors.As(err, &invalid), "expected InvalidFieldError, got %v", err)
			require.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestParseValueRejectsNonObjects(t *testing.T) {
	t.Parallel()

	for _, v := range []any{nil, "J", 3.0, []any{1.0}} {
		_, err := ParseValue(v)
		var invalid *InvalidFieldError
		require.True(t, errors.As(err, &invalid), "value %v", v)
	}
}

func TestParseRecordIgnoresExtraFields(t *testing.T) {
	t.Parallel()

	m := sampleMap(t)
	m["comment"] = "extra"
	rec, err := ParseRecord(m)
	require.NoError(t, err)
	require.Equal(t, "J", rec.Industry)
	require.Equal(t, 16.0, rec.YrsQual)

	round := rec.Map()
	require.Len(t, round, len(RequiredFields))
	require.Equal(t, 12.0, round[FieldJobQuals])
}

func TestIndustryTable(t *testing.T) {
	t.Parallel()

	table := IndustryTable()
	require.Len(t, table, 21)
	name, ok := IndustryName("U")
	require.True(t, ok)
	require.Equal(t, "Extraterritorial", name)

	table["J"] = "changed"
	name, _ = IndustryName("J")
	require.Equal(t, "Information", name)
}

func TestLookupCoversFeatureNames(t *testing.T) {
	t.Parallel()

	d, err := TransformMap(sampleMap(t))
	require.NoError(t, err)
	for _, name := range FeatureNames() {
		_, ok := d.Lookup(name)
		require.True(t, ok, name)
	}
	_, ok := d.Lookup("salary")
	require.False(t, ok)
}

func TestCheckFeatureSpace(t *testing.T) {
	t.Parallel()

	require.NoError(t, CheckFeatureSpace(
		[]string{FieldYrsQual, FeatureLeadershipScore},
		[]string{FeatureIndustryName},
	))

	err := CheckFeatureSpace([]string{"salary_band"}, nil)
	require.ErrorContains(t, err, "salary_band: not produced")

	err = CheckFeatureSpace(nil, []string{FeatureTeachingScore})
	require.ErrorContains(t, err, "model expects categorical")
}

func FuzzTransformNeverReturnsNonFinite(f *testing.F) {
	f.Add(12.0, 12.0, 16.0)
	f.Add(1.0, 3.0, 0.0)
	f.Add(-4.0, 2.0, 7.0)
	f.Fuzz(func(t *testing.T, highest, job, yrs float64) {
		if math.IsNaN(highest) || math.IsNaN(job) || math.IsNaN(yrs) ||
			math.IsInf(highest, 0) || math.IsInf(job, 0) || math.IsInf(yrs, 0) {
			return
		}
		d, err := Transform(RawRecord{Industry: "J", HighestQual: highest, JobQuals: job, YrsQual: yrs})
		if err != nil {
			var arith *ArithmeticError
			if !errors.As(err, &arith) {
				t.Fatalf("unexpected error type %T", err)
			}
			return
		}
		if math.IsNaN(d.EducationPremium) || math.IsNaN(d.EducationEfficiency) {
			t.Fatalf("NaN derived value for %v/%v/%v", highest, job, yrs)
		}
	})
}
