package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Canonical upstream keys of a member record.
const (
	KeyFullName             = "FULL_NAME"
	KeyGrade                = "GRADE"
	KeySSAN                 = "SSAN"
	KeyDOR                  = "DOR"
	KeyTAFMSD               = "TAFMSD"
	KeyDateArrivedStation   = "DATE_ARRIVED_STATION"
	KeyPAFSC                = "PAFSC"
	KeyDAFSC                = "DAFSC"
	Key2AFSC                = "2AFSC"
	Key3AFSC                = "3AFSC"
	Key4AFSC                = "4AFSC"
	KeyAssignedPAS          = "ASSIGNED_PAS"
	KeyAssignedPASCleartext = "ASSIGNED_PAS_CLEARTEXT"
	KeyReenlEligStatus      = "REENL_ELIG_STATUS"
	KeyUIFCode              = "UIF_CODE"
	KeyUIFDispositionDate   = "UIF_DISPOSITION_DATE"
	KeyGradePermProj        = "GRADE_PERM_PROJ"
)

// ErrUnknownField is returned when a patch names a key that is neither a
// canonical field nor one of its aliases.
var ErrUnknownField = errors.New("unknown member field")

// fieldSpec maps one canonical key to the ordered aliases upstream may use
// for it.  Exactly one of str/num is set.
type fieldSpec struct {
	key     string
	aliases []string
	str     func(d *MemberData) *string
	num     func(d *MemberData) *int
}

// fieldTable is the single source of truth for reading and writing member
// fields.  Order is the order fields are presented for editing.
var fieldTable = []fieldSpec{
	{key: KeyFullName, str: func(d *MemberData) *string { return &d.FullName }},
	{key: KeyGrade, str: func(d *MemberData) *string { return &d.Grade }},
	{key: KeySSAN, str: func(d *MemberData) *string { return &d.SSAN }},
	{key: KeyDOR, str: func(d *MemberData) *string { return &d.DOR }},
	{key: KeyTAFMSD, str: func(d *MemberData) *string { return &d.TAFMSD }},
	{key: KeyDateArrivedStation, str: func(d *MemberData) *string { return &d.DateArrivedStation }},
	{key: KeyPAFSC, str: func(d *MemberData) *string { return &d.PAFSC }},
	{key: KeyDAFSC, str: func(d *MemberData) *string { return &d.DAFSC }},
	{key: Key2AFSC, str: func(d *MemberData) *string { return &d.SecondAFSC }},
	{key: Key3AFSC, str: func(d *MemberData) *string { return &d.ThirdAFSC }},
	{key: Key4AFSC, str: func(d *MemberData) *string { return &d.FourthAFSC }},
	{key: KeyAssignedPAS, str: func(d *MemberData) *string { return &d.AssignedPAS }},
	{key: KeyAssignedPASCleartext, str: func(d *MemberData) *string { return &d.AssignedPASCleartext }},
	{key: KeyReenlEligStatus, aliases: []string{"REENLISTMENT_ELIGIBILITY_STATUS"}, str: func(d *MemberData) *string { return &d.ReenlEligStatus }},
	{key: KeyUIFCode, num: func(d *MemberData) *int { return &d.UIFCode }},
	{key: KeyUIFDispositionDate, str: func(d *MemberData) *string { return &d.UIFDispositionDate }},
	{key: KeyGradePermProj, aliases: []string{"GRADE_PERMANENT_PROJECTED"}, str: func(d *MemberData) *string { return &d.GradePermProj }},
}

// FieldKeys returns every canonical key in table order.
func FieldKeys() []string {
	keys := make([]string, 0, len(fieldTable))
	for _, f := range fieldTable {
		keys = append(keys, f.key)
	}
	return keys
}

// CanonicalKey maps a canonical key or alias to its canonical key.
func CanonicalKey(k string) (string, bool) {
	for _, f := range fieldTable {
		if f.key == k {
			return f.key, true
		}
		for _, a := range f.aliases {
			if a == k {
				return f.key, true
			}
		}
	}
	return "", false
}

// MemberData is the complete editable record of a member, keyed upstream by
// the canonical keys above.  Edits always resend the whole record.
type MemberData struct {
	FullName             string `json:"FULL_NAME"`
	Grade                string `json:"GRADE"`
	SSAN                 string `json:"SSAN"`
	DOR                  string `json:"DOR"`
	TAFMSD               string `json:"TAFMSD"`
	DateArrivedStation   string `json:"DATE_ARRIVED_STATION"`
	PAFSC                string `json:"PAFSC"`
	DAFSC                string `json:"DAFSC"`
	SecondAFSC           string `json:"2AFSC"`
	ThirdAFSC            string `json:"3AFSC"`
	FourthAFSC           string `json:"4AFSC"`
	AssignedPAS          string `json:"ASSIGNED_PAS"`
	AssignedPASCleartext string `json:"ASSIGNED_PAS_CLEARTEXT"`
	ReenlEligStatus      string `json:"REENL_ELIG_STATUS"`
	UIFCode              int    `json:"UIF_CODE"`
	UIFDispositionDate   string `json:"UIF_DISPOSITION_DATE"`
	GradePermProj        string `json:"GRADE_PERM_PROJ"`
}

// Get returns the value of a canonical key as a string.
func (d *MemberData) Get(key string) (string, bool) {
	for _, f := range fieldTable {
		if f.key != key {
			continue
		}
		if f.num != nil {
			return strconv.Itoa(*f.num(d)), true
		}
		return *f.str(d), true
	}
	return "", false
}

// UnmarshalJSON resolves every canonical field from the first non-empty of
// its canonical key and then its aliases, in table order.
func (d *MemberData) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	return d.resolve(raw)
}

func (d *MemberData) resolve(raw map[string]json.RawMessage) error {
	*d = MemberData{}
	for _, f := range fieldTable {
		for _, k := range append([]string{f.key}, f.aliases...) {
			v, ok := raw[k]
			if !ok || isBlank(v) {
				continue
			}
			if err := f.set(d, v); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			break
		}
	}
	return nil
}

// ApplyPatch merges a partial edit into d.  Keys may be canonical or
// aliases; when both name the same field the canonical key wins, and an
// explicitly present canonical key wins even when it clears the field.
func (d *MemberData) ApplyPatch(patch map[string]json.RawMessage) error {
	var unknown []string
	for k := range patch {
		if _, ok := CanonicalKey(k); !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", ErrUnknownField, strings.Join(unknown, ", "))
	}
	for _, f := range fieldTable {
		for _, k := range append([]string{f.key}, f.aliases...) {
			v, ok := patch[k]
			if !ok {
				continue
			}
			if err := f.set(d, v); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			break
		}
	}
	return nil
}

func (f fieldSpec) set(d *MemberData, v json.RawMessage) error {
	if f.num != nil {
		n, err := decodeInt(v)
		if err != nil {
			return err
		}
		*f.num(d) = n
		return nil
	}
	s, err := decodeString(v)
	if err != nil {
		return err
	}
	*f.str(d) = s
	return nil
}

func isBlank(v json.RawMessage) bool {
	t := bytes.TrimSpace(v)
	return len(t) == 0 || bytes.Equal(t, []byte("null")) || bytes.Equal(t, []byte(`""`))
}

// decodeString accepts JSON strings, numbers and booleans; spreadsheets
// upstream do not keep types stable.
func decodeString(v json.RawMessage) (string, error) {
	if isBlank(v) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String(), nil
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return strconv.FormatBool(b), nil
	}
	return "", fmt.Errorf("unsupported value %s", string(v))
}

func decodeInt(v json.RawMessage) (int, error) {
	if isBlank(v) {
		return 0, nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return int(f), nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return 0, fmt.Errorf("not a number: %s", string(v))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return i, nil
}
