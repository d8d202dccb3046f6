package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ChatFallback is shown when the chat service cannot answer.
const ChatFallback = "I'm sorry, I couldn't process your request at the moment."

// Symptoms are the six answers of the symptom quiz.
type Symptoms struct {
	Age      string
	Gender   string
	Country  string
	Symptom1 string
	Symptom2 string
	Symptom3 string
}

// payload returns the prediction service request keys.
func (s Symptoms) payload() map[string]string {
	return map[string]string{
		"Age":       s.Age,
		"Gender":    s.Gender,
		"Country":   s.Country,
		"Symptom 1": s.Symptom1,
		"Symptom 2": s.Symptom2,
		"Symptom 3": s.Symptom3,
	}
}

// Predict sends the quiz answers and returns the predicted disease.
func (c *Client) Predict(ctx context.Context, s Symptoms) (string, error) {
	r, err := jsonRequest("predict", http.MethodPost, c.predictURL, s.payload(), false)
	if err != nil {
		return "", err
	}

	var out struct {
		Disease string `json:"Disease"`
	}
	if _, err := c.do(ctx, r, &out); err != nil {
		return "", err
	}
	if out.Disease == "" {
		return "", errors.New("predict: response carried no disease")
	}
	return out.Disease, nil
}

// Ask sends a question to the chat service. Blank questions are rejected.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("ask: empty question")
	}

	r, err := jsonRequest("ask", http.MethodPost, c.chatURL, map[string]string{"question": question}, false)
	if err != nil {
		return "", err
	}

	var out struct {
		Result string `json:"result"`
	}
	if _, err := c.do(ctx, r, &out); err != nil {
		return "", err
	}
	if out.Result == "" {
		return "", fmt.Errorf("ask: empty answer")
	}
	return out.Result, nil
}

// AskOrFallback returns the chat answer, or ChatFallback and the error when it fails.
func (c *Client) AskOrFallback(ctx context.Context, question string) (string, error) {
	answer, err := c.Ask(ctx, question)
	if err != nil {
		c.logger.Warn().Err(err).Msg("chat failed, using fallback")
		return ChatFallback, err
	}
	return answer, nil
}
