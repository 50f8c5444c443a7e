package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioService sends reminders as SMS through the Twilio REST API.
type TwilioService struct {
	messages   messageCreator
	fromNumber string
}

func NewTwilioService(accountSID, authToken, fromNumber string) *TwilioService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioService{messages: client.Api, fromNumber: fromNumber}
}

func (s *TwilioService) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.fromNumber)
	params.SetBody(body)

	msg, err := s.messages.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	if msg != nil && msg.ErrorMessage != nil && *msg.ErrorMessage != "" {
		return errors.New(*msg.ErrorMessage)
	}
	return nil
}
