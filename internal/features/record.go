// Package features turns a raw job profile into the engineered feature set the
// salary model was trained on. Every transformation here must stay bit-for-bit
// identical to the training pipeline; single and batch predictions share it.
package features

import (
	"fmt"
)

// Field names of the raw input record, in the order they are checked.
const (
	FieldIndustry            = "industry"
	FieldOccupation          = "occupation"
	FieldYrsQual             = "yrs_qual"
	FieldSex                 = "sex"
	FieldHighestQual         = "highest_qual"
	FieldAreaOfStudy         = "area_of_study"
	FieldInfluencing         = "influencing"
	FieldNegotiating         = "negotiating"
	FieldSector              = "sector"
	FieldWorkforceChange     = "workforce_change"
	FieldNoSubordinates      = "no_subordinates"
	FieldChooseHours         = "choose_hours"
	FieldChooseMethod        = "choose_method"
	FieldJobQuals            = "job_quals"
	FieldQualNeeded          = "qual_needed"
	FieldExperienceNeeded    = "experience_needed"
	FieldKeepingCurrent      = "keeping_current"
	FieldSatisfaction        = "satisfaction"
	FieldAdvising            = "advising"
	FieldInstructing         = "instructing"
	FieldProblemSolvingQuick = "problem_solving_quick"
	FieldProblemSolvingLong  = "problem_solving_long"
	FieldLabour              = "labour"
	FieldManualSkill         = "manual_skill"
	FieldComputer            = "computer"
	FieldGroupMeetings       = "group_meetings"
	FieldComputerLevel       = "computer_level"
)

// RequiredFields lists every field a raw record must carry.
var RequiredFields = []string{
	FieldIndustry,
	FieldOccupation,
	FieldYrsQual,
	FieldSex,
	FieldHighestQual,
	FieldAreaOfStudy,
	FieldInfluencing,
	FieldNegotiating,
	FieldSector,
	FieldWorkforceChange,
	FieldNoSubordinates,
	FieldChooseHours,
	FieldChooseMethod,
	FieldJobQuals,
	FieldQualNeeded,
	FieldExperienceNeeded,
	FieldKeepingCurrent,
	FieldSatisfaction,
	FieldAdvising,
	FieldInstructing,
	FieldProblemSolvingQuick,
	FieldProblemSolvingLong,
	FieldLabour,
	FieldManualSkill,
	FieldComputer,
	FieldGroupMeetings,
	FieldComputerLevel,
}

// RawRecord is one validated job profile as submitted by a client.
// The struct is comparable so it can key a cache.
type RawRecord struct {
	Industry            string
	Occupation          float64
	YrsQual             float64
	Sex                 float64
	HighestQual         float64
	AreaOfStudy         float64
	Influencing         float64
	Negotiating         float64
	Sector              float64
	WorkforceChange     float64
	NoSubordinates      float64
	ChooseHours         float64
	ChooseMethod        float64
	JobQuals            float64
	QualNeeded          float64
	ExperienceNeeded    float64
	KeepingCurrent      float64
	Satisfaction        float64
	Advising            float64
	Instructing         float64
	ProblemSolvingQuick float64
	ProblemSolvingLong  float64
	Labour              float64
	ManualSkill         float64
	Computer            float64
	GroupMeetings       float64
	ComputerLevel       float64
}

// numericRef binds a numeric field name to its storage in a RawRecord.
type numericRef struct {
	name string
	ptr  *float64
}

func (r *RawRecord) numericRefs() []numericRef {
	return []numericRef{
		{FieldOccupation, &r.Occupation},
		{FieldYrsQual, &r.YrsQual},
		{FieldSex, &r.Sex},
		{FieldHighestQual, &r.HighestQual},
		{FieldAreaOfStudy, &r.AreaOfStudy},
		{FieldInfluencing, &r.Influencing},
		{FieldNegotiating, &r.Negotiating},
		{FieldSector, &r.Sector},
		{FieldWorkforceChange, &r.WorkforceChange},
		{FieldNoSubordinates, &r.NoSubordinates},
		{FieldChooseHours, &r.ChooseHours},
		{FieldChooseMethod, &r.ChooseMethod},
		{FieldJobQuals, &r.JobQuals},
		{FieldQualNeeded, &r.QualNeeded},
		{FieldExperienceNeeded, &r.ExperienceNeeded},
		{FieldKeepingCurrent, &r.KeepingCurrent},
		{FieldSatisfaction, &r.Satisfaction},
		{FieldAdvising, &r.Advising},
		{FieldInstructing, &r.Instructing},
		{FieldProblemSolvingQuick, &r.ProblemSolvingQuick},
		{FieldProblemSolvingLong, &r.ProblemSolvingLong},
		{FieldLabour, &r.Labour},
		{FieldManualSkill, &r.ManualSkill},
		{FieldComputer, &r.Computer},
		{FieldGroupMeetings, &r.GroupMeetings},
		{FieldComputerLevel, &r.ComputerLevel},
	}
}

// ParseValue validates an arbitrary decoded JSON value and builds a RawRecord.
// Anything other than a JSON object fails with an InvalidFieldError.
func ParseValue(v any) (RawRecord, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return RawRecord{}, &InvalidFieldError{Reason: fmt.Sprintf("record must be a JSON object, got %s", jsonKind(v))}
	}
	return ParseRecord(obj)
}

// ParseRecord checks that every required field is present, validates field
// types, and returns the typed record. Extra fields are ignored.
func ParseRecord(obj map[string]any) (RawRecord, error) {
	for _, name := range RequiredFields {
		if _, ok := obj[name]; !ok {
			return RawRecord{}, &MissingFieldError{Field: name}
		}
	}
	if err := validateSchema(obj); err != nil {
		return RawRecord{}, err
	}

	var rec RawRecord
	industry, ok := obj[FieldIndustry].(string)
	if !ok {
		return RawRecord{}, &InvalidFieldError{Field: FieldIndustry, Reason: "expected string"}
	}
	rec.Industry = industry
	for _, ref := range rec.numericRefs() {
		v, ok := toFloat(obj[ref.name])
		if !ok {
			return RawRecord{}, &InvalidFieldError{Field: ref.name, Reason: "expected number"}
		}
		*ref.ptr = v
	}
	return rec, nil
}

// Map renders the record back into its wire form.
func (r RawRecord) Map() map[string]any {
	out := make(map[string]any, len(RequiredFields))
	out[FieldIndustry] = r.Industry
	for _, ref := range r.numericRefs() {
		out[ref.name] = *ref.ptr
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		if _, ok := toFloat(v); ok {
			return "number"
		}
		return fmt.Sprintf("%T", v)
	}
}
