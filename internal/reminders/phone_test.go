package reminders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "ten digits", input: "4165551234", want: "+14165551234"},
		{name: "formatted ten digits", input: "(416) 555-1234", want: "+14165551234"},
		{name: "eleven digits with leading one", input: "1-416-555-1234", want: "+14165551234"},
		{name: "already e164", input: "+14165551234", want: "+14165551234"},
		{name: "international passes through", input: "+447911123456", want: "+447911123456"},
		{name: "too short", input: "123", wantErr: true},
		{name: "eleven digits without leading one", input: "24165551234", wantErr: true},
		{name: "short plus number", input: "+12345", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
