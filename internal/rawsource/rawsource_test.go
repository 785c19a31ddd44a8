package rawsource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTopicIsIdempotentOnPrefix(t *testing.T) {
	assert.Equal(t, "0xabcd", NormalizeTopic("abcd"))
	assert.Equal(t, "0xabcd", NormalizeTopic("0xabcd"))
}

func TestCDCAdapterLowercasesOp(t *testing.T) {
	payload := []byte(`{"op":"C","body":{"block_number":1,"transaction_hash":"0xdead","log_index":2,"address":"0xabc","data":"0x","topics":[]}}`)
	msg, err := CDCAdapter{}.IntoRawMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, OpCreate, msg.Op)
	assert.Equal(t, "0xdead-2", msg.Body.EventID())
}

func TestCDCAdapterRejectsUnknownOp(t *testing.T) {
	payload := []byte(`{"op":"x","body":{}}`)
	_, err := CDCAdapter{}.IntoRawMessage(payload)
	require.Error(t, err)
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestSubstreamsAdapterSynthesizesCreateAndNormalizesTopics(t *testing.T) {
	payload := []byte(`{"block_number":10,"transaction_hash":"0xdead","transaction_index":0,"log_index":1,"address":"0xabc","data":"0x01","topics":["abcd","0xef01"],"block_timestamp":1000}`)
	msg, err := SubstreamsAdapter{}.IntoRawMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, OpCreate, msg.Op)
	assert.Equal(t, []string{"0xabcd", "0xef01"}, msg.Body.Topics)
}

func TestCursorAdvanceOnlyMovesForward(t *testing.T) {
	c := Cursor{BlockNumber: 5, LogIndex: 2}
	c.Advance(Cursor{BlockNumber: 5, LogIndex: 1})
	assert.Equal(t, int64(2), c.LogIndex, "must not move backward within the same block")

	c.Advance(Cursor{BlockNumber: 6, LogIndex: 0})
	assert.Equal(t, int64(6), c.BlockNumber)
}
