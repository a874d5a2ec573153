package node_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostmesh/hostrt/dispatcher"
	"github.com/hostmesh/hostrt/envelope"
	"github.com/hostmesh/hostrt/node"
	"github.com/hostmesh/hostrt/notifier"
)

type nodeTestMsg struct{ V int }

func TestNode_DuplicateReaderRejected(t *testing.T) {
	dispatcher.Init[nodeTestMsg]()
	n := node.New("test-node", "")

	chanID := envelope.ChannelIDFromName("chan")

	r1 := node.CreateReader[nodeTestMsg](n, chanID, 4)
	require.NotNil(t, r1)

	r2 := node.CreateReader[nodeTestMsg](n, chanID, 4)
	require.Nil(t, r2)

	require.True(t, n.DeleteReader(chanID))

	r3 := node.CreateReader[nodeTestMsg](n, chanID, 4)
	require.NotNil(t, r3)
}

func TestNode_ObserveAndClearData(t *testing.T) {
	dispatcher.Init[nodeTestMsg]()
	n := node.New("test-node", "")
	chanID := envelope.ChannelIDFromName("chan")

	r := node.CreateReader[nodeTestMsg](n, chanID, 4)
	require.NotNil(t, r)

	notifier.Instance().AddNotifier(chanID, &notifier.Notifier{Callback: func() {}})
	require.True(t, dispatcher.Instance[nodeTestMsg]().Dispatch(chanID, envelope.New(chanID, nodeTestMsg{V: 1})))

	n.Observe()
	require.NotNil(t, r.Observed())
	require.Equal(t, uint64(1), r.Observed().Size())

	n.ClearData()
	require.Nil(t, r.Observed())
}
