package poller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/xmidt-org/chronon"
)

type RunTestSuite struct {
	suite.Suite

	clock *chronon.FakeClock

	// timers receives a value each time the driver arms its timer,
	// which happens only after an iteration has completed.
	timers chan time.Duration
}

func (suite *RunTestSuite) SetupTest() {
	suite.clock = chronon.NewFakeClock(time.Unix(1700000000, 0))
	suite.timers = make(chan time.Duration, 8)
}

func (suite *RunTestSuite) newPoller(f Fetcher, m Messenger, interval time.Duration) *Poller {
	p := New(f, m, interval)
	p.now = suite.clock.Now
	p.newTimer = func(d time.Duration) (<-chan time.Time, func() bool) {
		ft := suite.clock.NewTimer(d)
		suite.timers <- d
		return ft.C(), ft.Stop
	}
	return p
}

func (suite *RunTestSuite) awaitTimer() time.Duration {
	select {
	case d := <-suite.timers:
		return d
	case <-time.After(5 * time.Second):
		suite.FailNow("driver did not arm its timer")
		return 0
	}
}

func (suite *RunTestSuite) assertNoTimer() {
	select {
	case <-suite.timers:
		suite.Fail("unexpected iteration")
	case <-time.After(50 * time.Millisecond):
	}
}

func (suite *RunTestSuite) TestIterationsFollowTheTimer() {
	fetcher := new(MockFetcher)
	fetcher.On("GetAPIAnswer", mock.Anything, mock.Anything).
		Return(answer(`{"homeworks":[],"current_date":1700000000}`), nil)
	messenger := new(MockMessenger)

	p := suite.newPoller(fetcher, messenger, 10*time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan State)
	go func() {
		done <- p.Run(ctx, NewState(suite.clock.Now()))
	}()

	suite.Equal(10*time.Minute, suite.awaitTimer())
	fetcher.AssertNumberOfCalls(suite.T(), "GetAPIAnswer", 1)

	suite.clock.Add(9 * time.Minute)
	suite.assertNoTimer()
	fetcher.AssertNumberOfCalls(suite.T(), "GetAPIAnswer", 1)

	suite.clock.Add(time.Minute)
	suite.awaitTimer()
	fetcher.AssertNumberOfCalls(suite.T(), "GetAPIAnswer", 2)

	cancel()
	select {
	case s := <-done:
		suite.Equal(int64(1700000000), s.Timestamp)
	case <-time.After(5 * time.Second):
		suite.FailNow("driver did not stop")
	}
	messenger.AssertNotCalled(suite.T(), "SendMessage", mock.Anything)
}

func (suite *RunTestSuite) TestCanceledBeforeStart() {
	fetcher := new(MockFetcher)
	p := suite.newPoller(fetcher, new(MockMessenger), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := p.Run(ctx, State{Timestamp: 42})
	suite.Equal(int64(42), s.Timestamp)
	fetcher.AssertNotCalled(suite.T(), "GetAPIAnswer", mock.Anything, mock.Anything)
}

func (suite *RunTestSuite) TestErrorsDoNotStopTheLoop() {
	fetcher := new(MockFetcher)
	fetcher.On("GetAPIAnswer", mock.Anything, mock.Anything).Return(answer(`[]`), nil)
	messenger := new(MockMessenger)
	messenger.On("SendMessage", mock.AnythingOfType("string")).Return(nil).Once()

	p := suite.newPoller(fetcher, messenger, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx, State{Timestamp: 1})

	suite.awaitTimer()
	for range 3 {
		suite.clock.Add(time.Minute)
		suite.awaitTimer()
	}
	fetcher.AssertNumberOfCalls(suite.T(), "GetAPIAnswer", 4)
	messenger.AssertNumberOfCalls(suite.T(), "SendMessage", 1)
}

func TestRun(t *testing.T) {
	suite.Run(t, new(RunTestSuite))
}
