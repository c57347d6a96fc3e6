package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestParseTypeIDs(t *testing.T) {
	tests := []struct {
		raw     string
		want    []int32
		wantErr bool
	}{
		{"34", []int32{34}, false},
		{"34,35,36", []int32{34, 35, 36}, false},
		{" 34 , 35 ", []int32{34, 35}, false},
		{"", nil, false},
		{"   ", nil, false},
		{"34,abc", nil, true},
		{"12.5", nil, true},
	}

	for _, tt := range tests {
		got, err := parseTypeIDs(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseTypeIDs(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parseTypeIDs(%q) = %v, want %v", tt.raw, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseTypeIDs(%q)[%d] = %d, want %d", tt.raw, i, got[i], tt.want[i])
			}
		}
	}
}

func TestRequesterID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newCtx := func(header string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/", nil)
		if header != "" {
			c.Request.Header.Set("X-User-ID", header)
		}
		return c
	}

	if id := requesterID(newCtx("")); id != nil {
		t.Errorf("Missing header should yield nil, got %v", *id)
	}
	if id := requesterID(newCtx("42")); id == nil || *id != 42 {
		t.Errorf("requesterID = %v, want 42", id)
	}
	if id := requesterID(newCtx("not-a-number")); id != nil {
		t.Errorf("Garbage header should yield nil, got %v", *id)
	}
}
