package report

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Images holds up to MaxImages data URIs.
//
// The sheet may hand the column back as a JSON array, as a JSON-encoded string of one,
// as a bare data URI or as nothing at all.
type Images []string

func (imgs *Images) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*imgs = Images{}
		return nil
	}
	if b[0] == '[' {
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*imgs = compact(list)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var list []string
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			*imgs = compact(list)
			return nil
		}
	}
	*imgs = compact([]string{s})
	return nil
}

func compact(list []string) Images {
	imgs := make(Images, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			imgs = append(imgs, s)
		}
	}
	return imgs
}

// flexString accepts a JSON string, number or boolean. Spreadsheet cells typed as numbers
// or dates come back without quotes.
type flexString string

func (fs *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*fs = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*fs = flexString(s)
	default:
		*fs = flexString(b)
	}
	return nil
}

func (a *Assembly) UnmarshalJSON(b []byte) error {
	type alias Assembly
	aux := struct {
		*alias
		ID     flexString `json:"id"`
		Tarikh flexString `json:"tarikh"`
		Minggu flexString `json:"minggu"`
		Masa   flexString `json:"masa"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	a.ID, a.Tarikh, a.Minggu, a.Masa = string(aux.ID), string(aux.Tarikh), string(aux.Minggu), string(aux.Masa)
	return nil
}

func (c *Caring) UnmarshalJSON(b []byte) error {
	type alias Caring
	aux := struct {
		*alias
		ID     flexString `json:"id"`
		Tarikh flexString `json:"tarikh"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.ID, c.Tarikh = string(aux.ID), string(aux.Tarikh)
	return nil
}

// DecodeList decodes a JSON array of records of kind.
func DecodeList(kind Kind, data []byte) ([]Record, error) {
	switch kind {
	case KindAssembly:
		var list []Assembly
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		recs := make([]Record, len(list))
		for i := range list {
			recs[i] = list[i]
		}
		return recs, nil
	case KindCaring:
		var list []Caring
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		recs := make([]Record, len(list))
		for i := range list {
			recs[i] = list[i]
		}
		return recs, nil
	}
	return nil, ErrUnknownKind
}
