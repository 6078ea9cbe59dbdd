package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStep_CanonicalLabels(t *testing.T) {
	text := `TITLE: Configure the Storage Pool
OVERVIEW: This step covers initial pool setup.
CONTENT: Open the management console and create the pool with the
recommended replication factor for your cluster size.
KEY ACTIONS:
- Open the management console
- Create the storage pool
- Verify the replication factor`

	draft, err := ParseStep(3, text)
	require.NoError(t, err)
	assert.Equal(t, 3, draft.ChunkID)
	assert.Equal(t, "Configure the Storage Pool", draft.Title)
	assert.Equal(t, "This step covers initial pool setup.", draft.Overview)
	assert.Contains(t, draft.Content, "recommended replication factor")
	require.Len(t, draft.Actions, 3)
	assert.Equal(t, "Open the management console", draft.Actions[0])
}

func TestParseStep_LegacyLabels(t *testing.T) {
	text := `TITLE: Deploy the Agent
SUMMARY: Agent rollout overview.
DETAILS: Install the agent on every node before enabling collection.
ACTIONS:
* Install the agent
* Enable collection`

	draft, err := ParseStep(0, text)
	require.NoError(t, err)
	assert.Equal(t, "Agent rollout overview.", draft.Overview)
	assert.Contains(t, draft.Content, "Install the agent on every node")
	assert.Equal(t, []string{"Install the agent", "Enable collection"}, draft.Actions)
}

func TestParseStep_NumberedBulletsAndBlankLines(t *testing.T) {
	text := `TITLE: Verify Backups
OVERVIEW: Backup verification.
CONTENT: Check the latest snapshot status.

KEY ACTIONS:
1. Check the snapshot list
2) Verify the latest timestamp

3. Confirm retention settings`

	draft, err := ParseStep(0, text)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Check the snapshot list",
		"Verify the latest timestamp",
		"Confirm retention settings",
	}, draft.Actions)
}

func TestParseStep_UnrecognizedLinesAttachToCurrentSection(t *testing.T) {
	text := `TITLE: Set Up Monitoring
OVERVIEW: Monitoring basics.
CONTENT: Configure the exporter.
It scrapes every fifteen seconds.
KEY ACTIONS:
- Configure the exporter`

	draft, err := ParseStep(0, text)
	require.NoError(t, err)
	assert.Equal(t, "Configure the exporter. It scrapes every fifteen seconds.", draft.Content)
}

func TestParseStep_CaseInsensitiveLabels(t *testing.T) {
	text := `title: Run the Migration
overview: Migration run.
content: Execute the migration script against the staging database first.
key actions:
- Run the migration script`

	draft, err := ParseStep(0, text)
	require.NoError(t, err)
	assert.Equal(t, "Run the Migration", draft.Title)
}

func TestParseStep_MissingSections(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"no title", "OVERVIEW: o\nCONTENT: c\nKEY ACTIONS:\n- Run it", "TITLE"},
		{"no overview", "TITLE: t\nCONTENT: c\nKEY ACTIONS:\n- Run it", "OVERVIEW"},
		{"no content", "TITLE: t\nOVERVIEW: o\nKEY ACTIONS:\n- Run it", "CONTENT"},
		{"no actions", "TITLE: t\nOVERVIEW: o\nCONTENT: c", "KEY ACTIONS"},
		{"free text", "The model ignored the format entirely.", "TITLE"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseStep(0, tc.text)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
