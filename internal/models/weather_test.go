package models

import (
	"encoding/json"
	"testing"
)

func TestLookupOutcome_MarshalJSON_Success(t *testing.T) {
	outcome := Success(15.5, 14.2, "2024-03-01 12:00:00")

	data, err := json.Marshal(outcome)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if fields["temp"] != 15.5 {
		t.Errorf("temp = %v, want 15.5", fields["temp"])
	}
	if fields["feels_like_temp"] != 14.2 {
		t.Errorf("feels_like_temp = %v, want 14.2", fields["feels_like_temp"])
	}
	if fields["last_update"] != "2024-03-01 12:00:00" {
		t.Errorf("last_update = %v, want 2024-03-01 12:00:00", fields["last_update"])
	}
	if fields["status"] != float64(200) {
		t.Errorf("status = %v, want 200", fields["status"])
	}
}

func TestLookupOutcome_MarshalJSON_Failure(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "not found", status: 404},
		{name: "timeout", status: 408},
		{name: "server error", status: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(Failure(tt.status))
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			var fields map[string]interface{}
			if err := json.Unmarshal(data, &fields); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			if fields["status"] != float64(tt.status) {
				t.Errorf("status = %v, want %d", fields["status"], tt.status)
			}
			for _, key := range []string{"temp", "feels_like_temp", "last_update"} {
				if _, ok := fields[key]; ok {
					t.Errorf("failure outcome must not carry %q", key)
				}
			}
		})
	}
}

func TestLookupOutcome_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		outcome LookupOutcome
	}{
		{name: "success", outcome: Success(-3.0, -7.5, "2024-01-15 08:30:00")},
		{name: "failure", outcome: Failure(404)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.outcome)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			var got LookupOutcome
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			if got.Status != tt.outcome.Status {
				t.Errorf("Status = %d, want %d", got.Status, tt.outcome.Status)
			}
			if (got.Weather == nil) != (tt.outcome.Weather == nil) {
				t.Fatalf("Weather presence mismatch: got %v, want %v", got.Weather, tt.outcome.Weather)
			}
			if got.Weather != nil && *got.Weather != *tt.outcome.Weather {
				t.Errorf("Weather = %+v, want %+v", *got.Weather, *tt.outcome.Weather)
			}
		})
	}
}

func TestLookupOutcome_OK(t *testing.T) {
	if !Success(1, 2, "2024-01-01 00:00:00").OK() {
		t.Error("Success().OK() = false, want true")
	}
	if Failure(404).OK() {
		t.Error("Failure(404).OK() = true, want false")
	}
	if (LookupOutcome{Status: 200}).OK() {
		t.Error("200 without weather block must not be OK")
	}
}
