package models

import "encoding/json"

// CurrentWeather holds the weather fields reported on a successful lookup.
// LastUpdate is the upstream observation time formatted as YYYY-MM-DD HH:MM:SS.
type CurrentWeather struct {
	Temp       float64
	FeelsLike  float64
	LastUpdate string
}

// LookupOutcome is the uniform result of one upstream weather lookup. Status
// follows HTTP semantics: 200 means success, anything else failure (408 is a
// locally synthesized timeout). Weather is nil unless the upstream answered
// with a usable weather block.
type LookupOutcome struct {
	Status  int
	Weather *CurrentWeather
}

// Success returns a 200 outcome carrying the given weather fields.
func Success(temp, feelsLike float64, lastUpdate string) LookupOutcome {
	return LookupOutcome{
		Status: 200,
		Weather: &CurrentWeather{
			Temp:       temp,
			FeelsLike:  feelsLike,
			LastUpdate: lastUpdate,
		},
	}
}

// Failure returns an outcome carrying only a status code.
func Failure(status int) LookupOutcome {
	return LookupOutcome{Status: status}
}

// OK reports whether the outcome is a successful lookup.
func (o LookupOutcome) OK() bool {
	return o.Status == 200 && o.Weather != nil
}

// outcomeJSON is the flat wire form shared by the HTTP response body and the
// stored response row: weather fields are present only on success.
type outcomeJSON struct {
	Temp          *float64 `json:"temp,omitempty"`
	FeelsLikeTemp *float64 `json:"feels_like_temp,omitempty"`
	LastUpdate    string   `json:"last_update,omitempty"`
	Status        int      `json:"status"`
}

func (o LookupOutcome) MarshalJSON() ([]byte, error) {
	wire := outcomeJSON{Status: o.Status}
	if o.Weather != nil {
		wire.Temp = &o.Weather.Temp
		wire.FeelsLikeTemp = &o.Weather.FeelsLike
		wire.LastUpdate = o.Weather.LastUpdate
	}
	return json.Marshal(wire)
}

func (o *LookupOutcome) UnmarshalJSON(data []byte) error {
	var wire outcomeJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	o.Status = wire.Status
	o.Weather = nil
	if wire.Temp != nil && wire.FeelsLikeTemp != nil {
		o.Weather = &CurrentWeather{
			Temp:       *wire.Temp,
			FeelsLike:  *wire.FeelsLikeTemp,
			LastUpdate: wire.LastUpdate,
		}
	}
	return nil
}

// RequestRecord is one audit-log request row as surfaced by admin queries.
// At is already formatted as YYYY-MM-DD HH:MM:SS.
type RequestRecord struct {
	City string
	At   string
}

// CityCount pairs a city with the number of its successful lookups.
type CityCount struct {
	City  string
	Count int
}
