package operation

import (
	"context"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestNestedOperationDoesNotCancelParent(t *testing.T) {
	som := SingleOperationManager{}
	ctx1, done1 := som.New(context.Background())
	defer done1()
	_, done2 := som.New(ctx1)
	defer done2()
	test.That(t, ctx1.Err(), test.ShouldBeNil)
}

func TestNewGoalCancelsInFlightAttempt(t *testing.T) {
	som := SingleOperationManager{}
	ctx1, done1 := som.New(context.Background())
	defer done1()

	test.That(t, som.OpRunning(), test.ShouldBeTrue)

	_, done2 := som.New(context.Background())
	defer done2()

	test.That(t, ctx1.Err(), test.ShouldEqual, context.Canceled)
}

func TestNewTimedWaitOpCompletes(t *testing.T) {
	som := SingleOperationManager{}
	test.That(t, som.NewTimedWaitOp(context.Background(), time.Millisecond), test.ShouldBeTrue)
	test.That(t, som.OpRunning(), test.ShouldBeFalse)
}
