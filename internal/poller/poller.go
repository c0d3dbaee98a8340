// Package poller runs the poll-check-notify loop: fetch the homework
// statuses, validate them, and forward changes and failures to a
// messenger, suppressing repeats.
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/eliseohh/reviewbot/internal/failure"
	"github.com/eliseohh/reviewbot/internal/homework"
	"github.com/eliseohh/reviewbot/internal/journal"
	"github.com/eliseohh/reviewbot/internal/logger"
)

// Fetcher retrieves the raw API answer.
type Fetcher interface {
	GetAPIAnswer(ctx context.Context, from int64) (gjson.Result, error)
}

// Messenger delivers a text notification.
type Messenger interface {
	SendMessage(text string) error
}

// Recorder keeps an audit trail of polls and notifications. It is never
// read back by the loop.
type Recorder interface {
	RecordPoll(ctx context.Context, p journal.Poll) error
	RecordNotification(ctx context.Context, n journal.Notification) error
}

// State is carried from one iteration to the next.
type State struct {
	// Timestamp is the from_date of the next request, in epoch seconds.
	Timestamp int64
	// LastMessage is the last status notification attempted.
	LastMessage string
	// LastError is the last error notification attempted. It is cleared
	// by a successful iteration.
	LastError string
}

// NewState returns the initial state for a loop starting at now.
func NewState(now time.Time) State {
	return State{Timestamp: now.Unix()}
}

type Poller struct {
	fetcher   Fetcher
	messenger Messenger
	recorder  Recorder
	interval  time.Duration

	now      func() time.Time
	newTimer newTimer
}

func New(f Fetcher, m Messenger, interval time.Duration) *Poller {
	return &Poller{
		fetcher:   f,
		messenger: m,
		interval:  interval,
		now:       time.Now,
		newTimer:  defaultNewTimer,
	}
}

// SetRecorder attaches an audit recorder. A nil recorder disables it.
func (p *Poller) SetRecorder(r Recorder) {
	p.recorder = r
}

// Run calls RunOnce, then waits one interval, until ctx is canceled.
// It returns the final state.
func (p *Poller) Run(ctx context.Context, s State) State {
	logger.Infof("polling every %s", p.interval)
	for {
		if ctx.Err() != nil {
			return s
		}
		s = p.RunOnce(ctx, s)

		timeCh, stop := p.newTimer(p.interval)
		select {
		case <-ctx.Done():
			stop()
			logger.Infof("polling stopped")
			return s
		case <-timeCh:
		}
	}
}

// RunOnce performs a single poll and returns the next state. Failures
// are reported through the messenger and never escape.
func (p *Poller) RunOnce(ctx context.Context, s State) State {
	cycle := uuid.NewString()
	log := logger.With("cycle", cycle)
	poll := journal.Poll{ID: cycle, StartedAt: p.now(), From: s.Timestamp}

	msg, count, next, err := p.check(ctx, s.Timestamp)
	s.Timestamp = next
	poll.Next, poll.Homeworks = next, count

	if err != nil {
		kind := failure.KindOf(err)
		poll.ErrorKind, poll.Error = kind.String(), err.Error()
		log.Error("poll failed", "kind", kind.String(), "error", err)

		text := fmt.Sprintf("Program failure: %v", err)
		if text != s.LastError {
			p.deliver(ctx, cycle, journal.KindError, text)
			s.LastError = text
		} else {
			log.Debug("error already reported")
		}
		p.recordPoll(ctx, poll)
		return s
	}

	s.LastError = ""
	switch {
	case msg == "":
		log.Debug("no homework updates", "from_date", poll.From)
	case msg == s.LastMessage:
		log.Debug("status unchanged")
	default:
		p.deliver(ctx, cycle, journal.KindStatus, msg)
		s.LastMessage = msg
	}
	p.recordPoll(ctx, poll)
	return s
}

// check fetches, validates and parses. next is advanced from the
// server's current_date as soon as the response validates, even when
// parsing the record then fails.
func (p *Poller) check(ctx context.Context, from int64) (msg string, count int, next int64, err error) {
	next = from

	resp, err := p.fetcher.GetAPIAnswer(ctx, from)
	if err != nil {
		return "", 0, next, err
	}
	hws, err := homework.CheckResponse(resp)
	if err != nil {
		return "", 0, next, err
	}
	if date, ok := homework.CurrentDate(resp); ok {
		next = date
	} else {
		logger.Warnf("current_date missing from response, keeping from_date=%d", from)
	}

	count = len(hws)
	if count == 0 {
		return "", 0, next, nil
	}
	msg, err = homework.ParseStatus(hws[0])
	return msg, count, next, err
}

// deliver sends text and logs a failure instead of returning it.
func (p *Poller) deliver(ctx context.Context, pollID, kind, text string) {
	err := p.messenger.SendMessage(text)
	if err != nil {
		logger.Errorf("notification not delivered: %v", err)
	}

	if p.recorder == nil {
		return
	}
	n := journal.Notification{
		PollID:    pollID,
		Kind:      kind,
		Text:      text,
		Delivered: err == nil,
		SentAt:    p.now(),
	}
	if err != nil {
		n.Error = err.Error()
	}
	if rerr := p.recorder.RecordNotification(ctx, n); rerr != nil {
		logger.Warnf("journal: %v", rerr)
	}
}

func (p *Poller) recordPoll(ctx context.Context, poll journal.Poll) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.RecordPoll(ctx, poll); err != nil {
		logger.Warnf("journal: %v", err)
	}
}
