package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sansad-av/talktime/internal/timecodec"
)

var t0 = time.Date(2024, time.February, 7, 11, 0, 0, 0, time.UTC)

func Test_Model_StartBroadcast(t *testing.T) {
	tests := []struct {
		name      string
		from      Mode
		mode      Mode
		payload   Payload
		wantErr   error
		wantMode  Mode
		wantPushN int
	}{
		{
			"starting from Idle succeeds",
			ModeIdle,
			ModeBillDiscussion,
			&BillDiscussionPayload{BillName: "The Finance Bill"},
			nil,
			ModeBillDiscussion,
			1,
		},
		{
			"restarting the mode on air succeeds",
			ModeMemberSpeaking,
			ModeMemberSpeaking,
			nil,
			nil,
			ModeMemberSpeaking,
			2,
		},
		{
			"switching directly to another mode is refused",
			ModeZeroHour,
			ModeMemberSpeaking,
			nil,
			ErrTransitionNotAllowed,
			ModeZeroHour,
			1,
		},
		{
			"Idle cannot be started",
			ModeIdle,
			ModeIdle,
			nil,
			ErrInvalidMode,
			ModeIdle,
			0,
		},
		{
			"unknown modes are refused",
			ModeIdle,
			Mode("Question Hour"),
			nil,
			ErrInvalidMode,
			ModeIdle,
			0,
		},
		{
			"payload must match the mode",
			ModeIdle,
			ModeZeroHour,
			&MemberSpeakingPayload{},
			ErrPayloadMismatch,
			ModeIdle,
			0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			m := NewModel(timecodec.NewFakeClock(t0), r, r)
			if tt.from != ModeIdle {
				require.NoError(t, m.StartBroadcast(tt.from, nil, timecodec.TimeValue{}, nil))
			}
			err := m.StartBroadcast(tt.mode, tt.payload, timecodec.TimeValue{}, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantMode, m.State().Mode)
			assert.Len(t, r.pushed(), tt.wantPushN)
			assert.Len(t, r.published(), tt.wantPushN)
		})
	}
}

func Test_Model_StartBroadcast_initializesTimer(t *testing.T) {
	clock := timecodec.NewFakeClock(t0)
	r := &recorder{}
	m := NewModel(clock, r, r)

	member := &Member{SeatNo: "12", Name: "A. Member", Party: "IND"}
	err := m.StartBroadcast(ModeZeroHour, &ZeroHourPayload{Member: member}, timecodec.TimeValue{Minutes: 1, Seconds: 5}, nil)
	assert.NoError(t, err)

	s := m.State()
	assert.Equal(t, 65, s.DisplayTimeSeconds)
	assert.False(t, s.IsPaused)
	assert.Equal(t, timecodec.UnixMillis(t0), s.TimerTimestampMs)
	assert.Equal(t, DefaultZeroHourMinutes, s.Payload.(*ZeroHourPayload).TimerDurationMinutes)

	msgs := r.pushed()
	require.Len(t, msgs, 1)
	assert.Equal(t, MessageTypeStartBroadcast, msgs[0].Type)
	assert.Equal(t, ModeZeroHour, msgs[0].Mode)
	assert.Equal(t, 65, *msgs[0].DisplayTimeSeconds)

	states := r.published()
	require.Len(t, states, 1)
	assert.Equal(t, s, states[0])
}

func Test_Model_StartBroadcast_timerDuration(t *testing.T) {
	m := NewModel(timecodec.NewFakeClock(t0), nil, nil)
	five := 5
	assert.NoError(t, m.StartBroadcast(ModeZeroHour, nil, timecodec.TimeValue{}, &five))
	assert.Equal(t, 5, m.State().Payload.(*ZeroHourPayload).TimerDurationMinutes)
}

func Test_Model_chairIsRemembered(t *testing.T) {
	r := &recorder{}
	m := NewModel(timecodec.NewFakeClock(t0), r, r)

	chair := Chair{Name: "Shri X", Position: "Chairman", Photo: "https://example.com/x.jpg"}
	assert.NoError(t, m.SetChair(chair))
	assert.Equal(t, chair, m.State().Chairperson())

	assert.NoError(t, m.StartBroadcast(ModeMemberSpeaking, nil, timecodec.TimeValue{}, nil))
	assert.Equal(t, chair, m.State().Chairperson())

	assert.NoError(t, m.EndBroadcast(nil))
	s := m.State()
	assert.Equal(t, ModeIdle, s.Mode)
	assert.Equal(t, chair, s.Chairperson())
	assert.Equal(t, 0, s.DisplayTimeSeconds)

	other := Chair{Name: "Smt Y", Position: "Deputy Chairman"}
	assert.NoError(t, m.EndBroadcast(&IdlePayload{Chair: other}))
	assert.Equal(t, other, m.State().Chairperson())
	assert.Equal(t, other, m.Chair())
}

func Test_Model_UpdateData(t *testing.T) {
	t.Run("only the chairperson may change while Idle", func(t *testing.T) {
		r := &recorder{}
		m := NewModel(timecodec.NewFakeClock(t0), r, r)
		heading := "Special Mention"
		err := m.UpdateData(Patch{CustomHeading: &heading})
		assert.ErrorIs(t, err, ErrNoActiveBroadcast)
		assert.Len(t, r.pushed(), 0)
		assert.Len(t, r.published(), 0)

		name := "Shri X"
		err = m.UpdateData(Patch{Chairperson: &name, CustomHeading: &heading})
		assert.ErrorIs(t, err, ErrNoActiveBroadcast)
		assert.Equal(t, "", m.State().Chairperson().Name)
	})
	t.Run("fields merge into the payload on air", func(t *testing.T) {
		r := &recorder{}
		m := NewModel(timecodec.NewFakeClock(t0), r, r)
		require.NoError(t, m.StartBroadcast(ModeBillDiscussion, &BillDiscussionPayload{BillName: "The Finance Bill"}, timecodec.TimeValue{}, nil))

		party := &PartyAllocation{AllocatedSeconds: 3600, ConsumedSeconds: 1200, EffectiveParty: "ABC"}
		assert.NoError(t, m.UpdateData(Patch{PartyTime: party}))

		p := m.State().Payload.(*BillDiscussionPayload)
		assert.Equal(t, "The Finance Bill", p.BillName)
		assert.Equal(t, party, p.PartyTime)

		msgs := r.pushed()
		require.Len(t, msgs, 2)
		assert.Equal(t, MessageTypeDataUpdate, msgs[1].Type)
		assert.Len(t, r.published(), 2)
	})
	t.Run("empty patch is a no-op", func(t *testing.T) {
		r := &recorder{}
		m := NewModel(timecodec.NewFakeClock(t0), r, r)
		assert.NoError(t, m.UpdateData(Patch{}))
		assert.Len(t, r.pushed(), 0)
	})
	t.Run("published payloads are not mutated by later updates", func(t *testing.T) {
		r := &recorder{}
		m := NewModel(timecodec.NewFakeClock(t0), r, r)
		require.NoError(t, m.StartBroadcast(ModeMemberSpeaking, &MemberSpeakingPayload{CustomHeading: "first"}, timecodec.TimeValue{}, nil))
		heading := "second"
		require.NoError(t, m.UpdateData(Patch{CustomHeading: &heading}))

		states := r.published()
		require.Len(t, states, 2)
		assert.Equal(t, "first", states[0].Payload.(*MemberSpeakingPayload).CustomHeading)
		assert.Equal(t, "second", states[1].Payload.(*MemberSpeakingPayload).CustomHeading)
	})
}

func Test_Model_SetPaused(t *testing.T) {
	t.Run("pausing freezes the timer", func(t *testing.T) {
		clock := timecodec.NewFakeClock(t0)
		m := NewModel(clock, nil, nil)
		require.NoError(t, m.StartBroadcast(ModeMemberSpeaking, nil, timecodec.TimeValue{Seconds: 50}, nil))
		assert.NoError(t, m.SetPaused(true))

		clock.Advance(10 * time.Second)
		s := m.State()
		assert.True(t, s.IsPaused)
		assert.Equal(t, 50, s.Elapsed(clock.Now()))
	})
	t.Run("pausing captures time elapsed since the last update", func(t *testing.T) {
		clock := timecodec.NewFakeClock(t0)
		m := NewModel(clock, nil, nil)
		require.NoError(t, m.StartBroadcast(ModeMemberSpeaking, nil, timecodec.TimeValue{}, nil))

		clock.Advance(5400 * time.Millisecond)
		assert.NoError(t, m.SetPaused(true))
		assert.Equal(t, 5, m.State().DisplayTimeSeconds)

		clock.Advance(3 * time.Second)
		assert.NoError(t, m.SetPaused(false))
		clock.Advance(2 * time.Second)
		assert.Equal(t, 7, m.State().Elapsed(clock.Now()))
	})
	t.Run("pausing twice only notifies once", func(t *testing.T) {
		r := &recorder{}
		m := NewModel(timecodec.NewFakeClock(t0), r, r)
		require.NoError(t, m.StartBroadcast(ModeZeroHour, nil, timecodec.TimeValue{}, nil))
		assert.NoError(t, m.SetPaused(true))
		assert.NoError(t, m.SetPaused(true))
		msgs := r.pushed()
		assert.Len(t, msgs, 2)
		assert.Equal(t, MessageTypeTimerPaused, msgs[1].Type)
		assert.True(t, *msgs[1].IsPaused)
	})
	t.Run("pausing while Idle is refused", func(t *testing.T) {
		m := NewModel(timecodec.NewFakeClock(t0), nil, nil)
		assert.ErrorIs(t, m.SetPaused(true), ErrNoActiveBroadcast)
	})
}

func Test_Model_UpdateTimer(t *testing.T) {
	clock := timecodec.NewFakeClock(t0)
	r := &recorder{}
	m := NewModel(clock, r, r)
	assert.ErrorIs(t, m.UpdateTimer(10), ErrNoActiveBroadcast)

	require.NoError(t, m.StartBroadcast(ModeMemberSpeaking, nil, timecodec.TimeValue{}, nil))
	clock.Advance(4 * time.Second)
	assert.NoError(t, m.UpdateTimer(120))

	s := m.State()
	assert.Equal(t, 120, s.DisplayTimeSeconds)
	assert.Equal(t, timecodec.UnixMillis(clock.Now()), s.TimerTimestampMs)
	assert.Equal(t, MessageTypeTimerSync, r.pushed()[1].Type)

	// A paused timer keeps its timestamp
	require.NoError(t, m.SetPaused(true))
	pausedAt := m.State().TimerTimestampMs
	clock.Advance(time.Second)
	assert.NoError(t, m.UpdateTimer(30))
	assert.Equal(t, 30, m.State().DisplayTimeSeconds)
	assert.Equal(t, pausedAt, m.State().TimerTimestampMs)
}

func Test_Model_Tick(t *testing.T) {
	clock := timecodec.NewFakeClock(t0)
	r := &recorder{}
	m := NewModel(clock, r, r)
	require.NoError(t, m.StartBroadcast(ModeZeroHour, nil, timecodec.TimeValue{}, nil))

	clock.Advance(250 * time.Millisecond)
	m.Tick()
	assert.Len(t, r.pushed(), 1)

	clock.Advance(1250 * time.Millisecond)
	m.Tick()
	s := m.State()
	assert.Equal(t, 1, s.DisplayTimeSeconds)
	assert.Equal(t, timecodec.UnixMillis(t0)+1000, s.TimerTimestampMs)
	assert.Equal(t, MessageTypeTimerUpdate, r.pushed()[1].Type)
	assert.Len(t, r.published(), 2)

	// A data update at 1.9s publishes; the tick at 2.0s is then too soon to publish
	clock.Advance(400 * time.Millisecond)
	heading := "x"
	member := &Member{SeatNo: "1", Name: heading}
	require.NoError(t, m.UpdateData(Patch{Member: member}))
	assert.Len(t, r.published(), 3)
	clock.Advance(100 * time.Millisecond)
	m.Tick()
	assert.Equal(t, 2, m.State().DisplayTimeSeconds)
	assert.Len(t, r.pushed(), 4)
	assert.Len(t, r.published(), 3)

	// Nothing advances while paused
	require.NoError(t, m.SetPaused(true))
	clock.Advance(5 * time.Second)
	m.Tick()
	assert.Equal(t, 2, m.State().DisplayTimeSeconds)
}

func Test_Model_Tick_zeroHourRunsOver(t *testing.T) {
	clock := timecodec.NewFakeClock(t0)
	r := &recorder{}
	m := NewModel(clock, r, r)
	member := &Member{SeatNo: "12", Name: "A. Member"}
	three := 3
	require.NoError(t, m.StartBroadcast(ModeZeroHour, &ZeroHourPayload{Member: member}, timecodec.TimeValue{}, &three))
	assert.Len(t, r.published(), 1)

	for i := 0; i < 181; i++ {
		clock.Advance(time.Second)
		m.Tick()
	}
	s := m.State()
	assert.Equal(t, 181, s.DisplayTimeSeconds)
	assert.Len(t, r.pushed(), 182)
}

func Test_Model_StepMessage(t *testing.T) {
	m := NewModel(timecodec.NewFakeClock(t0), nil, nil)
	assert.ErrorIs(t, m.StepMessage(1), ErrPayloadMismatch)

	entries := []MessageEntry{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	require.NoError(t, m.StartBroadcast(ModeObituary, &MessagePayload{Entries: entries}, timecodec.TimeValue{}, nil))
	assert.Equal(t, "a", m.State().Payload.(*MessagePayload).Entry.ID)

	assert.NoError(t, m.StepMessage(-1))
	p := m.State().Payload.(*MessagePayload)
	assert.Equal(t, 2, p.CurrentIndex)
	assert.Equal(t, "c", p.Entry.ID)

	assert.NoError(t, m.StepMessage(1))
	p = m.State().Payload.(*MessagePayload)
	assert.Equal(t, 0, p.CurrentIndex)
	assert.Equal(t, "a", p.Entry.ID)

	require.NoError(t, m.EndBroadcast(nil))
	require.NoError(t, m.StartBroadcast(ModeBirthday, nil, timecodec.TimeValue{}, nil))
	assert.ErrorIs(t, m.StepMessage(1), ErrNoMessageEntries)
}

func Test_Model_StepMessage_concurrentRestart(t *testing.T) {
	m := NewModel(timecodec.NewFakeClock(t0), nil, nil)
	lists := [][]MessageEntry{
		{{ID: "a0"}, {ID: "a1"}, {ID: "a2"}},
		{{ID: "b0"}, {ID: "b1"}, {ID: "b2"}, {ID: "b3"}, {ID: "b4"}},
	}
	require.NoError(t, m.StartBroadcast(ModeBirthday, &MessagePayload{Entries: lists[0]}, timecodec.TimeValue{}, nil))

	// The entry on air must always be the one at CurrentIndex in the list on air
	consistent := func() bool {
		p := m.State().Payload.(*MessagePayload)
		return p.Entry != nil && p.Entry.ID == p.Entries[p.CurrentIndex].ID
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			assert.NoError(t, m.StepMessage(1))
			assert.True(t, consistent())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			payload := &MessagePayload{Entries: lists[i%2], CurrentIndex: i % 3}
			assert.NoError(t, m.StartBroadcast(ModeBirthday, payload, timecodec.TimeValue{}, nil))
		}
	}()
	wg.Wait()
	assert.True(t, consistent())
}

func Test_Model_versionsIncrease(t *testing.T) {
	r := &recorder{}
	m := NewModel(timecodec.NewFakeClock(t0), r, r)
	require.NoError(t, m.StartBroadcast(ModeMemberSpeaking, nil, timecodec.TimeValue{}, nil))
	require.NoError(t, m.SetPaused(true))
	require.NoError(t, m.EndBroadcast(nil))

	states := r.published()
	require.Len(t, states, 3)
	assert.Equal(t, timecodec.UnixMillis(t0), states[0].Version)
	assert.Greater(t, states[1].Version, states[0].Version)
	assert.Greater(t, states[2].Version, states[1].Version)
}

func Test_Model_displayMirrorsModel(t *testing.T) {
	clock := timecodec.NewFakeClock(t0)
	r := &recorder{}
	m := NewModel(clock, r, r)

	mirror := IdleState(Chair{})
	check := func() {
		for _, msg := range r.drain() {
			mirror = Apply(mirror, msg)
		}
		want := m.State()
		assert.Equal(t, want.Mode, mirror.Mode)
		assert.Equal(t, want.Payload, mirror.Payload)
		assert.Equal(t, want.DisplayTimeSeconds, mirror.DisplayTimeSeconds)
		assert.Equal(t, want.IsPaused, mirror.IsPaused)
		if want.IsActive() {
			assert.Equal(t, want.TimerTimestampMs, mirror.TimerTimestampMs)
		}
	}

	require.NoError(t, m.SetChair(Chair{Name: "Shri X", Position: "Chairman"}))
	check()
	require.NoError(t, m.StartBroadcast(ModeBillDiscussion, &BillDiscussionPayload{BillName: "B"}, timecodec.TimeValue{Seconds: 10}, nil))
	check()
	clock.Advance(2 * time.Second)
	m.Tick()
	check()
	require.NoError(t, m.UpdateData(Patch{MemberTime: &MemberAllocation{AllocatedSeconds: 600, IsAllocated: true}}))
	check()
	require.NoError(t, m.SetPaused(true))
	check()
	require.NoError(t, m.UpdateTimer(99))
	check()
	require.NoError(t, m.EndBroadcast(nil))
	check()
}

type recorder struct {
	mu       sync.Mutex
	messages []Message
	states   []State
	cursor   int
}

var _ Pusher = (*recorder)(nil)
var _ Publisher = (*recorder)(nil)

func (r *recorder) Push(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recorder) Publish(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recorder) pushed() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

func (r *recorder) published() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func (r *recorder) drain() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[r.cursor:]
	r.cursor = len(r.messages)
	return msgs
}
