package e2e

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"table-lab/domain"
	"table-lab/domain/event"
	"table-lab/observability"

	"github.com/stretchr/testify/suite"
)

type testSessionSuite struct {
	BaseSessionSuite
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, &testSessionSuite{})
}

func (s *testSessionSuite) TestFullSessionFlow() {
	ctx := context.Background()
	const interaction = "e2e-interaction"

	room, err := s.Manager.CreateRoom(interaction, "gm", domain.GameState{})
	s.Require().NoError(err)

	spectator := &CollectingHandler{}
	subID, err := s.Broadcaster.Subscribe(room.ID, "spectator", nil, spectator)
	s.Require().NoError(err)

	s.Step("Step 1: Players join and appear in the event stream")
	_, err = s.Manager.JoinRoom(ctx, interaction, domain.Participant{
		UserID: "alice", EntityID: "char-a", EntityType: domain.EntityPlayer, Connected: true,
	})
	s.Require().NoError(err)
	_, err = s.Manager.JoinRoom(ctx, interaction, domain.Participant{
		UserID: "bob", EntityID: "char-b", EntityType: domain.EntityPlayer, Connected: true,
	})
	s.Require().NoError(err)

	s.Require().Eventually(func() bool {
		return len(spectator.OfType(event.ParticipantJoined)) == 2
	}, 2*time.Second, 10*time.Millisecond, "both join events should reach the spectator")

	s.Step("Step 2: Initiative order activates the room and starts turn one")
	err = s.Manager.SetInitiative(ctx, interaction, "gm", []domain.InitiativeEntry{
		{EntityID: "char-a", EntityType: domain.EntityPlayer, Initiative: 18, UserID: "alice"},
		{EntityID: "char-b", EntityType: domain.EntityPlayer, Initiative: 11, UserID: "bob"},
	})
	s.Require().NoError(err)

	state, err := s.Manager.GetRoomState(interaction)
	s.Require().NoError(err)
	s.Require().Equal(1, state.RoundNumber)
	s.Require().Equal("char-a", state.Initiative[0].EntityID)
	s.Require().Eventually(func() bool {
		return len(spectator.OfType(event.TurnStarted)) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	s.Step("Step 3: An attack lands and the damage shows up in state")
	state, rejection, err := s.Manager.ProcessTurnAction(ctx, interaction, domain.TurnAction{
		Type: domain.ActionAttack, EntityID: "char-a", UserID: "alice", TargetID: "char-b",
	})
	s.Require().NoError(err)
	s.Require().Nil(rejection)
	s.Require().Equal(88, state.Participants["char-b"].HP)

	s.Step("Step 4: A foreign entity is refused without touching state")
	_, rejection, err = s.Manager.ProcessTurnAction(ctx, interaction, domain.TurnAction{
		Type: domain.ActionEnd, EntityID: "char-a", UserID: "bob",
	})
	s.Require().NoError(err)
	s.Require().NotNil(rejection)
	s.Require().Equal(domain.RejectNotYourEntity, rejection.Code)

	s.Step("Step 5: Ending the turn hands the table to the next entity")
	state, rejection, err = s.Manager.ProcessTurnAction(ctx, interaction, domain.TurnAction{
		Type: domain.ActionEnd, EntityID: "char-a", UserID: "alice",
	})
	s.Require().NoError(err)
	s.Require().Nil(rejection)
	s.Require().Equal(1, state.CurrentTurnIndex)
	s.Require().Equal(1, state.RoundNumber)

	s.Require().Eventually(func() bool {
		return len(spectator.OfType(event.TurnCompleted)) >= 1 &&
			len(spectator.OfType(event.TurnStarted)) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	s.Step("Step 6: Chat is censored before anyone sees it")
	err = s.Manager.PostChat(ctx, interaction, "bob", "gg, you dicebot")
	s.Require().NoError(err)

	s.Require().Eventually(func() bool {
		messages := spectator.OfType(event.ChatMessage)
		if len(messages) == 0 {
			return false
		}
		payload, ok := messages[0].Payload.(event.ChatPayload)
		return ok && !strings.Contains(payload.Content, "dicebot") &&
			strings.Contains(payload.Content, "*******")
	}, 2*time.Second, 10*time.Millisecond, "banned word should be starred out")

	s.Step("Step 7: Coalesced deltas arrive as a batch")
	s.Require().Eventually(func() bool {
		deltas := spectator.OfType(event.StateDeltaBatch)
		if len(deltas) == 0 {
			return false
		}
		batch, ok := deltas[0].Payload.(event.DeltaBatch)
		return ok && len(batch.Deltas) > 0
	}, 2*time.Second, 10*time.Millisecond, "pending deltas should flush as one batch")

	s.Step("Step 8: Unsubscribe is idempotent")
	s.Require().True(s.Broadcaster.Unsubscribe(subID))
	s.Require().False(s.Broadcaster.Unsubscribe(subID))

	s.Step("Step 9: Completing the room tears everything down")
	err = s.Manager.CompleteRoom(ctx, interaction, "gm")
	s.Require().NoError(err)
	s.Require().Equal(0, s.Manager.RoomCount())
	s.Require().Equal(0, s.Broadcaster.SubscriberCount())
	s.Require().Equal(int64(0), s.Memory.Leaks.Value(observability.CounterRooms))

	if s.Config.DumpStatus {
		s.Memory.Monitor.Observe()
		observability.RenderStatus(os.Stdout, s.Memory.Status(), s.Config.Colours)
	}
}

func (s *testSessionSuite) TestForcedCleanupTrimsHistories() {
	ctx := context.Background()
	const interaction = "e2e-cleanup"

	_, err := s.Manager.CreateRoom(interaction, "gm", domain.GameState{})
	s.Require().NoError(err)
	_, err = s.Manager.JoinRoom(ctx, interaction, domain.Participant{
		UserID: "alice", EntityID: "char-a", EntityType: domain.EntityPlayer, Connected: true,
	})
	s.Require().NoError(err)

	for i := 0; i < 150; i++ {
		s.Require().NoError(s.Manager.PostChat(ctx, interaction, "alice", "filler line"))
	}

	result := s.Memory.ForceCleanup()
	s.Require().NotZero(result.Run.At)
	s.Require().Len(result.Optimized, 1)

	state, err := s.Manager.GetRoomState(interaction)
	s.Require().NoError(err)
	s.Require().LessOrEqual(len(state.ChatLog), 100)
}
