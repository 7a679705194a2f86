package http

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradedash/internal/services"
)

func TestParseSelectionRequest(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    services.SelectionRequest
		wantErr string
	}{
		{
			name:  "empty query",
			query: "",
			want:  services.SelectionRequest{},
		},
		{
			name:  "comma separated countries",
			query: "year=2023&countries=Chile,%20Peru,&theme=Reds",
			want:  services.SelectionRequest{Year: 2023, Countries: []string{"Chile", "Peru"}, CountriesSet: true, Theme: "Reds"},
		},
		{
			name:  "repeated countries",
			query: "countries=Chile&countries=Kenya",
			want:  services.SelectionRequest{Countries: []string{"Chile", "Kenya"}, CountriesSet: true},
		},
		{
			name:  "present but empty countries",
			query: "countries=",
			want:  services.SelectionRequest{CountriesSet: true},
		},
		{
			name:    "non numeric year",
			query:   "year=twenty",
			wantErr: `invalid year "twenty": must be a number`,
		},
		{
			name:    "year out of range",
			query:   "year=10000",
			wantErr: "invalid year 10000: must be between 1 and 9999",
		},
		{
			name:    "too many countries",
			query:   "countries=" + strings.Repeat("x,", maxCountries+1),
			wantErr: "too many countries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := ParseSelectionRequest(q)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "Chile", sanitizeInput("  Chi\x00le\n "))
	assert.Equal(t, "Côte d'Ivoire", sanitizeInput("Côte d'Ivoire"))
}
