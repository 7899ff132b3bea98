package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecode_Register(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"register","projectId":"p1","metadata":{"extensionVersion":"1.2.0"}}`))
	require.NoError(t, err)

	reg, ok := msg.(*Register)
	require.True(t, ok)
	require.Equal(t, "p1", reg.ProjectID)
	require.NotNil(t, reg.Metadata)
	require.Equal(t, "1.2.0", reg.Metadata.ExtensionVersion)
	require.Equal(t, TypeRegister, reg.MessageType())
}

func TestDecode_RegisterMissingProject(t *testing.T) {
	_, err := Decode([]byte(`{"type":"register","projectId":"  "}`))
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestDecode_Malformed(t *testing.T) {
	for _, frame := range []string{`not json`, `[]`, `null`, `{}`, `{"type":""}`, `{"type":5}`} {
		_, err := Decode([]byte(frame))
		require.ErrorIs(t, err, ErrMalformed, "frame %s", frame)
	}
}

func TestDecode_VerifyIssueResponse(t *testing.T) {
	msg, err := Decode([]byte(`{
		"type":"verify_issue_response",
		"requestId":"r1","projectId":"p1","issueId":"i1",
		"success":true,"verified":true,"reasoning":"button now has a label",
		"details":{"checked":3}
	}`))
	require.NoError(t, err)

	resp, ok := msg.(*VerifyIssueResponse)
	require.True(t, ok)
	require.Equal(t, "r1", resp.RequestID)
	require.True(t, resp.Verified)
	require.Equal(t, "button now has a label", resp.Reasoning)
	require.Equal(t, float64(3), resp.Details["checked"])
}

func TestDecode_VerifyIssueResponseMissingFields(t *testing.T) {
	_, err := Decode([]byte(`{"type":"verify_issue_response","projectId":"p1"}`))
	require.ErrorIs(t, err, ErrInvalidPayload)
	require.Contains(t, err.Error(), "issueId, requestId, success")
}

func TestDecode_WriteIssueValidation(t *testing.T) {
	_, err := Decode([]byte(`{"type":"write_issue","projectId":"p1","title":"t"}`))
	require.ErrorIs(t, err, ErrInvalidPayload)
	require.Contains(t, err.Error(), "agentPrompt")
	require.Contains(t, err.Error(), "agentTypes")
}

func TestDecode_PingPongAndPassthrough(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"ping"}`))
	require.NoError(t, err)
	require.IsType(t, &Ping{}, msg)

	msg, err = Decode([]byte(`{"type":"pong"}`))
	require.NoError(t, err)
	require.IsType(t, &Pong{}, msg)

	msg, err = Decode([]byte(`{"type":"page_snapshot","url":"https://example.com"}`))
	require.NoError(t, err)
	pass, ok := msg.(*Passthrough)
	require.True(t, ok)
	require.Equal(t, "page_snapshot", pass.MessageType())
	require.JSONEq(t, `{"type":"page_snapshot","url":"https://example.com"}`, string(pass.Raw))
}

func TestEnvelope_Stamped(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	env := Envelope{Type: EnvelopeData, Payload: DataPayload{Data: 1}}.Stamped(now)
	require.Equal(t, int64(1700000000000), env.Timestamp)
	require.NotEmpty(t, env.MessageID)

	kept := Envelope{Type: EnvelopeData, Timestamp: 5, MessageID: "m1"}.Stamped(now)
	require.Equal(t, int64(5), kept.Timestamp)
	require.Equal(t, "m1", kept.MessageID)
}

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"notification","payload":{"title":"Hi","message":"there","level":"warning"}}`))
	require.NoError(t, err)
	require.Equal(t, EnvelopeNotification, env.Type)
	require.Equal(t, NotificationPayload{Title: "Hi", Message: "there", Level: "warning"}, env.Payload)

	env, err = ParseEnvelope([]byte(`{"type":"command","payload":{"action":"reload","tabId":4}}`))
	require.NoError(t, err)
	payload := env.Payload.(map[string]any)
	require.Equal(t, float64(4), payload["tabId"])

	_, err = ParseEnvelope([]byte(`{"type":"shout","payload":{}}`))
	require.ErrorIs(t, err, ErrUnknownEnvelopeType)

	_, err = ParseEnvelope([]byte(`{"type":"status"}`))
	require.ErrorIs(t, err, ErrInvalidPayload)

	_, err = ParseEnvelope([]byte(`{"type":"notification","payload":{"title":"x","message":"y","level":"loud"}}`))
	require.ErrorIs(t, err, ErrInvalidPayload)

	_, err = ParseEnvelope([]byte(`{"type":"command","payload":{"parameters":{}}}`))
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestVerifyIssueFixCommand_WireShape(t *testing.T) {
	env := VerifyIssueFixCommand("p1", "i1", "rv1", "req1")
	data, err := json.Marshal(env)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"type":"command",
		"payload":{"action":"verify_issue_fix","projectId":"p1","issueId":"i1","reviewId":"rv1","requestId":"req1"}
	}`, string(data))
}

func TestReplies_WireShape(t *testing.T) {
	data, err := json.Marshal(NewRegistrationSuccess("c1", "p1", false))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"registration_success","clientId":"c1","projectId":"p1","message":"Registered for project p1"}`, string(data))

	data, err = json.Marshal(ReceivedReply("custom"))
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"received","type":"custom","message":"Message received"}`, string(data))

	data, err = json.Marshal(NewPong(time.UnixMilli(42)))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"pong","timestamp":42}`, string(data))
}
