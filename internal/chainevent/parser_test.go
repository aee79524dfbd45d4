package chainevent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEmitsKnownEventsOnly(t *testing.T) {
	payload := []byte(`{
		"block_height": 5,
		"events": [
			{"txid":"0x1","contract_event":{"contract_identifier":"SP000.pipe","topic":"print","raw_value":{"event":"fund-pipe","sender":"SP1","pipe-key":{"principal-1":"SP1","principal-2":"SP2"},"pipe":{"balance-1":"10","balance-2":"20","expires-at":null,"nonce":1}}}},
			{"txid":"0x2","contract_event":{"contract_identifier":"SP000.pipe","topic":"print","raw_value":{"event":"some-future-event","sender":"SP1","pipe-key":{"principal-1":"SP1","principal-2":"SP2"}}}},
			{"txid":"0x3","contract_event":{"contract_identifier":"SP000.pipe","topic":"not-print","raw_value":{"event":"fund-pipe"}}}
		]
	}`)

	events, err := Parse(payload, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "fund-pipe", events[0].EventName)
	require.Equal(t, ClassUpdate, events[0].Class)
}

func TestParseFiltersByWatchedContracts(t *testing.T) {
	payload := []byte(`{
		"block_height": 5,
		"events": [
			{"txid":"0x1","contract_event":{"contract_identifier":"SP111.pipe","topic":"print","raw_value":{"event":"transfer","sender":"SP1","pipe-key":{"principal-1":"SP1","principal-2":"SP2"},"pipe":{"balance-1":"10","balance-2":"20","nonce":1}}}}
		]
	}`)

	events, err := Parse(payload, map[string]bool{"SP999.pipe": true})
	require.NoError(t, err)
	require.Len(t, events, 0)

	events, err = Parse(payload, map[string]bool{"SP111.pipe": true})
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestParsePipeIDIndependentOfPrincipalOrder(t *testing.T) {
	a := []byte(`{"block_height":1,"events":[{"txid":"0x1","contract_event":{"contract_identifier":"SP000.pipe","topic":"print","raw_value":{"event":"force-close","sender":"SP2","pipe-key":{"principal-1":"SP1AAA","principal-2":"SP2BBB"},"pipe":{"balance-1":"50","balance-2":"75","nonce":4}}}}]}`)
	b := []byte(`{"block_height":1,"events":[{"txid":"0x1","contract_event":{"contract_identifier":"SP000.pipe","topic":"print","raw_value":{"event":"force-close","sender":"SP2","pipe-key":{"principal-1":"SP2BBB","principal-2":"SP1AAA"},"pipe":{"balance-1":"75","balance-2":"50","nonce":4}}}}]}`)

	evA, err := Parse(a, nil)
	require.NoError(t, err)
	evB, err := Parse(b, nil)
	require.NoError(t, err)

	require.Equal(t, evA[0].PipeID, evB[0].PipeID)
	require.Equal(t, "SP1AAA", evA[0].PipeKey.PrincipalLow)
	require.Equal(t, evA[0].Pipe.BalanceLow, evB[0].Pipe.BalanceLow)
	require.Equal(t, "50", evA[0].Pipe.BalanceLow)
	require.Equal(t, "75", evA[0].Pipe.BalanceHigh)
	require.Equal(t, ClassOpenClosure, evA[0].Class)
}

func TestParseReordersPendingFields(t *testing.T) {
	payload := []byte(`{"block_height":1,"events":[{"txid":"0x1","contract_event":{"contract_identifier":"SP000.pipe","topic":"print","raw_value":{"event":"deposit","sender":"SP2","pipe-key":{"principal-1":"SP2BBB","principal-2":"SP1AAA"},"pipe":{"balance-1":"0","balance-2":"0","pending-1":{"amount":"4000000","burn-height":159},"nonce":2}}}}]}`)

	events, err := Parse(payload, nil)
	require.NoError(t, err)
	require.NotNil(t, events[0].Pipe.PendingHigh)
	require.Nil(t, events[0].Pipe.PendingLow)
	require.Equal(t, "4000000", events[0].Pipe.PendingHigh.Amount)
	require.Equal(t, uint64(159), events[0].Pipe.PendingHigh.UnlockBurnHeight)
}
