package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"tuition_tracker_echo/internal/config"
)

type fakeMessages struct {
	params *twilioApi.CreateMessageParams
	resp   *twilioApi.ApiV2010Message
	err    error
}

func (f *fakeMessages) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = params
	return f.resp, f.err
}

func TestTwilioService_Send(t *testing.T) {
	sid := "SM123"
	fake := &fakeMessages{resp: &twilioApi.ApiV2010Message{Sid: &sid}}
	svc := &TwilioService{messages: fake, fromNumber: "+15005550006"}

	require.NoError(t, svc.Send(context.Background(), "+14165551234", "Tuition reminder"))
	require.NotNil(t, fake.params)
	assert.Equal(t, "+14165551234", *fake.params.To)
	assert.Equal(t, "+15005550006", *fake.params.From)
	assert.Equal(t, "Tuition reminder", *fake.params.Body)
}

func TestTwilioService_SendErrors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		svc := &TwilioService{messages: &fakeMessages{err: errors.New("Status: 400 - The 'To' number is not a valid phone number.")}}
		err := svc.Send(context.Background(), "+10000000000", "hi")
		assert.ErrorContains(t, err, "twilio create message")
		assert.ErrorContains(t, err, "not a valid phone number")
	})

	t.Run("message level error", func(t *testing.T) {
		msg := "Queue overflow"
		svc := &TwilioService{messages: &fakeMessages{resp: &twilioApi.ApiV2010Message{ErrorMessage: &msg}}}
		assert.EqualError(t, svc.Send(context.Background(), "+14165551234", "hi"), "Queue overflow")
	})

	t.Run("cancelled context", func(t *testing.T) {
		fake := &fakeMessages{}
		svc := &TwilioService{messages: fake}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, svc.Send(ctx, "+14165551234", "hi"), context.Canceled)
		assert.Nil(t, fake.params)
	})
}

func TestNewSender(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.Config
		wantType  interface{}
		wantError string
	}{
		{
			name:     "log",
			cfg:      config.Config{NotifyTransport: config.TransportLog},
			wantType: &LogSender{},
		},
		{
			name:     "waha",
			cfg:      config.Config{NotifyTransport: config.TransportWaha, WahaBaseURL: "http://waha:3000"},
			wantType: &WahaService{},
		},
		{
			name: "twilio",
			cfg: config.Config{
				NotifyTransport:  config.TransportTwilio,
				TwilioAccountSID: "AC123",
				TwilioAuthToken:  "token",
				TwilioFromNumber: "+15005550006",
			},
			wantType: &TwilioService{},
		},
		{
			name:      "twilio without credentials",
			cfg:       config.Config{NotifyTransport: config.TransportTwilio},
			wantError: "TWILIO_ACCOUNT_SID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := NewSender(&tt.cfg, nil)
			if tt.wantError != "" {
				assert.ErrorContains(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, sender)
		})
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	sender := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, sender.Send(context.Background(), "+14165551234", "hello"))
	assert.Contains(t, buf.String(), "to=+14165551234")
}
