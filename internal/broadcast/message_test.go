package broadcast

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Apply(t *testing.T) {
	chair := Chair{Name: "Shri X", Position: "Chairman"}
	live := State{
		Mode:               ModeMemberSpeaking,
		Payload:            &MemberSpeakingPayload{CustomHeading: "Special Mention", Chair: chair},
		DisplayTimeSeconds: 40,
		TimerTimestampMs:   1000,
	}
	seventy := 70
	yes := true
	heading := "Zero Hour Submission"

	tests := []struct {
		name  string
		state State
		msg   Message
		want  State
	}{
		{
			"START_BROADCAST without a mode defaults to Zero Hour",
			IdleState(chair),
			Message{Type: MessageTypeStartBroadcast},
			State{Mode: ModeZeroHour, Payload: &ZeroHourPayload{TimerDurationMinutes: DefaultZeroHourMinutes}},
		},
		{
			"START_BROADCAST replaces the payload wholesale",
			live,
			Message{Type: MessageTypeStartBroadcast, Mode: ModeMemberSpeaking, Payload: &MemberSpeakingPayload{}},
			State{Mode: ModeMemberSpeaking, Payload: &MemberSpeakingPayload{}},
		},
		{
			"DATA_UPDATE merges only the fields it carries",
			live,
			Message{Type: MessageTypeDataUpdate, Patch: &Patch{CustomHeading: &heading}},
			State{
				Mode:               ModeMemberSpeaking,
				Payload:            &MemberSpeakingPayload{CustomHeading: heading, Chair: chair},
				DisplayTimeSeconds: 40,
				TimerTimestampMs:   1000,
			},
		},
		{
			"TIMER_UPDATE sets the timer",
			live,
			Message{Type: MessageTypeTimerUpdate, DisplayTimeSeconds: &seventy},
			State{
				Mode:               ModeMemberSpeaking,
				Payload:            live.Payload,
				DisplayTimeSeconds: 70,
				TimerTimestampMs:   1000,
			},
		},
		{
			"TIMER_PAUSED pauses even without an explicit flag",
			live,
			Message{Type: MessageTypeTimerPaused},
			State{
				Mode:               ModeMemberSpeaking,
				Payload:            live.Payload,
				DisplayTimeSeconds: 40,
				IsPaused:           true,
				TimerTimestampMs:   1000,
			},
		},
		{
			"TIMER_SYNC carries the pause flag",
			live,
			Message{Type: MessageTypeTimerSync, IsPaused: &yes},
			State{
				Mode:               ModeMemberSpeaking,
				Payload:            live.Payload,
				DisplayTimeSeconds: 40,
				IsPaused:           true,
				TimerTimestampMs:   1000,
			},
		},
		{
			"BROADCAST_END keeps the chairperson when none is given",
			live,
			Message{Type: MessageTypeBroadcastEnd},
			IdleState(chair),
		},
		{
			"REQUEST_FULLSCREEN leaves state alone",
			live,
			Message{Type: MessageTypeRequestFullscreen},
			live,
		},
		{
			"unknown messages are ignored",
			live,
			Message{Type: "SOMETHING_ELSE"},
			live,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(tt.state, tt.msg)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_Message_JSON(t *testing.T) {
	t.Run("START_BROADCAST decodes its payload by mode", func(t *testing.T) {
		data := `{"type":"START_BROADCAST","broadcastType":"Bill Discussion","payload":{"billName":"B","memberData":{"seat_no":12,"name":"M"},"partyTimeData":{"allocated":600,"consumed":500,"effectiveParty":"ABC"}},"displayTimeSeconds":5}`
		var msg Message
		require.NoError(t, json.Unmarshal([]byte(data), &msg))
		assert.Equal(t, ModeBillDiscussion, msg.Mode)
		p, ok := msg.Payload.(*BillDiscussionPayload)
		require.True(t, ok)
		assert.Equal(t, "B", p.BillName)
		assert.Equal(t, SeatNo("12"), p.Member.SeatNo)
		assert.Equal(t, 600, p.PartyTime.AllocatedSeconds)
		assert.Equal(t, 5, *msg.DisplayTimeSeconds)
	})
	t.Run("timer messages accept hours, minutes and seconds", func(t *testing.T) {
		var msg Message
		require.NoError(t, json.Unmarshal([]byte(`{"type":"TIMER_UPDATE","time":{"hours":0,"minutes":2,"seconds":3}}`), &msg))
		assert.Equal(t, 123, *msg.DisplayTimeSeconds)
	})
	t.Run("messages without a type are refused", func(t *testing.T) {
		var msg Message
		assert.Error(t, json.Unmarshal([]byte(`{"isPaused":true}`), &msg))
	})
	t.Run("timer messages are encoded with a time breakdown", func(t *testing.T) {
		seconds := 3725
		data, err := json.Marshal(Message{Type: MessageTypeTimerSync, DisplayTimeSeconds: &seconds})
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"TIMER_SYNC","time":{"hours":1,"minutes":2,"seconds":5},"displayTimeSeconds":3725}`, string(data))
	})
}

func Test_State_JSON(t *testing.T) {
	t.Run("inactive documents are Idle whatever mode they name", func(t *testing.T) {
		data := `{"is_active":false,"mode":"Zero Hour","payload":{"chairperson":"Shri X","memberData":{"seat_no":"3"}},"displayTimeSeconds":12,"isPaused":true}`
		var s State
		require.NoError(t, json.Unmarshal([]byte(data), &s))
		assert.Equal(t, ModeIdle, s.Mode)
		assert.Equal(t, &IdlePayload{Chair: Chair{Name: "Shri X"}}, s.Payload)
		assert.Equal(t, 0, s.DisplayTimeSeconds)
		assert.False(t, s.IsPaused)
	})
	t.Run("active documents with an unknown mode are refused", func(t *testing.T) {
		var s State
		assert.ErrorIs(t, json.Unmarshal([]byte(`{"is_active":true,"mode":"Question Hour"}`), &s), ErrInvalidMode)
	})
	t.Run("displayTime is used when displayTimeSeconds is absent", func(t *testing.T) {
		data := `{"is_active":true,"mode":"Member Speaking","displayTime":{"hours":0,"minutes":1,"seconds":1},"timerTimestamp":1700000000000}`
		var s State
		require.NoError(t, json.Unmarshal([]byte(data), &s))
		assert.Equal(t, 61, s.DisplayTimeSeconds)
		assert.Equal(t, int64(1700000000000), s.TimerTimestampMs)
		assert.Equal(t, &MemberSpeakingPayload{}, s.Payload)
	})
	t.Run("encoded state carries is_active and a null timestamp when unknown", func(t *testing.T) {
		data, err := json.Marshal(IdleState(Chair{Name: "Shri X"}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"is_active":false,"mode":"Idle","payload":{"chairperson":"Shri X"},"displayTime":{"hours":0,"minutes":0,"seconds":0},"displayTimeSeconds":0,"timerTimestamp":null,"isPaused":false}`, string(data))
	})
}

func Test_SeatNo(t *testing.T) {
	var m Member
	require.NoError(t, json.Unmarshal([]byte(`{"seat_no":7}`), &m))
	assert.Equal(t, SeatNo("7"), m.SeatNo)
	assert.True(t, SeatNo("007").Matches("7"))
	assert.False(t, SeatNo("17").Matches("7"))
	assert.Equal(t, "0", SeatNo("000").Normalized())
}
