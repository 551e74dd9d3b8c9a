package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cucumber/godog"

	"github.com/cayopay/cayopay-identity/pkg/model"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	response     *http.Response
	responseBody []byte
	tokens       map[string]string
	me           string
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{
		tc:     tc,
		tokens: make(map[string]string),
	}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the identity server is running$`, s.theIdentityServerIsRunning)
	sc.Step(`^I am logged in as the owner$`, s.iAmLoggedInAsTheOwner)

	sc.Step(`^I invite "([^"]*)" as "([^"]*)"$`, s.iInviteAs)
	sc.Step(`^an invitation was sent to "([^"]*)"$`, s.anInvitationWasSentTo)
	sc.Step(`^"([^"]*)" accepts the invitation with password "([^"]*)" as "([^"]*) ([^"]*)"$`, s.acceptsTheInvitation)
	sc.Step(`^"([^"]*)" declines the invitation$`, s.declinesTheInvitation)

	sc.Step(`^"([^"]*)" logs in with password "([^"]*)"$`, s.logsInWithPassword)
	sc.Step(`^I log out$`, s.iLogOut)
	sc.Step(`^I request my profile$`, s.iRequestMyProfile)
	sc.Step(`^"([^"]*)" has a wallet$`, s.hasAWallet)
	sc.Step(`^I remove "([^"]*)"$`, s.iRemove)

	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, s.theResponseFieldShouldBe)
	sc.Step(`^the response error should be "([^"]*)"$`, s.theResponseErrorShouldBe)
}

func (s *StepsContext) do(method, path, token string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.tc.ServerURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	s.response, err = s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	s.responseBody, err = io.ReadAll(s.response.Body)
	_ = s.response.Body.Close()
	return err
}

// Background steps

func (s *StepsContext) theIdentityServerIsRunning() error {
	return s.tc.Reset()
}

func (s *StepsContext) iAmLoggedInAsTheOwner() error {
	if err := s.logsInWithPassword(ownerEmail, ownerPassword); err != nil {
		return err
	}
	if s.response.StatusCode != http.StatusOK {
		return fmt.Errorf("owner login failed: %d %s", s.response.StatusCode, s.responseBody)
	}
	s.me = ownerEmail
	return nil
}

// Invitation steps

func (s *StepsContext) iInviteAs(email, roleName string) error {
	return s.do("POST", "/invites", s.tokens[s.me], map[string]string{"email": email, "role": roleName})
}

func (s *StepsContext) anInvitationWasSentTo(email string) error {
	if _, ok := s.tc.Outbox.TokenFor(email); !ok {
		return fmt.Errorf("no invitation sent to %s", email)
	}
	return nil
}

func (s *StepsContext) acceptsTheInvitation(email, password, first, last string) error {
	token, ok := s.tc.Outbox.TokenFor(email)
	if !ok {
		return fmt.Errorf("no invitation sent to %s", email)
	}
	return s.do("POST", "/invites/"+token+"/accept", "", map[string]string{
		"password": password, "first_name": first, "last_name": last,
	})
}

func (s *StepsContext) declinesTheInvitation(email string) error {
	token, ok := s.tc.Outbox.TokenFor(email)
	if !ok {
		return fmt.Errorf("no invitation sent to %s", email)
	}
	return s.do("POST", "/invites/"+token+"/decline", "", nil)
}

// Session steps

func (s *StepsContext) logsInWithPassword(email, password string) error {
	if err := s.do("POST", "/auth/login", "", map[string]string{"email": email, "password": password}); err != nil {
		return err
	}
	for _, c := range s.response.Cookies() {
		if c.Name == "cayopay_session" && c.Value != "" {
			s.tokens[email] = c.Value
		}
	}
	return nil
}

func (s *StepsContext) iLogOut() error {
	return s.do("POST", "/auth/logout", s.tokens[s.me], nil)
}

func (s *StepsContext) iRequestMyProfile() error {
	return s.do("GET", "/auth/me", s.tokens[s.me], nil)
}

func (s *StepsContext) hasAWallet(email string) error {
	var count int64
	err := s.tc.DB.Model(&model.Wallet{}).
		Joins("JOIN users ON users.actor_id = wallets.owner_actor_id").
		Where("users.email = ?", email).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count != 1 {
		return fmt.Errorf("expected 1 wallet for %s, found %d", email, count)
	}
	return nil
}

func (s *StepsContext) iRemove(email string) error {
	user, err := s.tc.Directory.FindByAddress(context.Background(), email)
	if err != nil {
		return fmt.Errorf("find %s: %w", email, err)
	}
	return s.do("DELETE", "/actors/"+user.ActorID.String(), s.tokens[s.me], nil)
}

// Response steps

func (s *StepsContext) theResponseStatusShouldBe(expectedStatus int) error {
	if s.response.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d, got %d: %s", expectedStatus, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseFieldShouldBe(field, expected string) error {
	var body map[string]any
	if err := json.Unmarshal(s.responseBody, &body); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	actual := fmt.Sprint(body[field])
	if actual != expected {
		return fmt.Errorf("expected %s %q, got %q", field, expected, actual)
	}
	return nil
}

func (s *StepsContext) theResponseErrorShouldBe(expected string) error {
	var body map[string]string
	if err := json.Unmarshal(s.responseBody, &body); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if actual := strings.TrimSpace(body["error"]); actual != expected {
		return fmt.Errorf("expected error %q, got %q", expected, actual)
	}
	return nil
}
