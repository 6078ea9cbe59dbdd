package transcript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traindoc-io/traindoc/pkg/models"
)

func TestNormalize_EmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   \n\t  ", "\x00\x01\x02"} {
		_, err := Normalize(raw)
		assert.Error(t, err, "input %q should be rejected", raw)
	}
}

func TestNormalize_NoTerminatingPunctuation(t *testing.T) {
	_, err := Normalize("this text just trails off with no punctuation at all")
	assert.Error(t, err)
}

func TestNormalize_BasicSplitting(t *testing.T) {
	sentences, err := Normalize("First we install the agent. Then we configure it. Done!")
	require.NoError(t, err)
	require.Len(t, sentences, 3)

	assert.Equal(t, "First we install the agent.", sentences[0].Text)
	assert.Equal(t, "Then we configure it.", sentences[1].Text)
	assert.Equal(t, "Done!", sentences[2].Text)

	// IDs are dense and sequential from 0
	for i, s := range sentences {
		assert.Equal(t, i, s.ID)
	}
}

func TestNormalize_AbbreviationsDoNotSplit(t *testing.T) {
	sentences, err := Normalize("Dr. Smith showed the setup, e.g. the staging cluster. It worked.")
	require.NoError(t, err)
	require.Len(t, sentences, 2)
	assert.Contains(t, sentences[0].Text, "Dr. Smith")
	assert.Contains(t, sentences[0].Text, "e.g. the staging cluster")
}

func TestNormalize_Timestamps(t *testing.T) {
	sentences, err := Normalize("[00:15] We start here. [01:02:03] We end here.")
	require.NoError(t, err)
	require.Len(t, sentences, 2)

	require.NotNil(t, sentences[0].TimestampSeconds)
	assert.Equal(t, 15.0, *sentences[0].TimestampSeconds)

	require.NotNil(t, sentences[1].TimestampSeconds)
	assert.Equal(t, 3723.0, *sentences[1].TimestampSeconds)

	// Brackets stripped from text
	assert.Equal(t, "We start here.", sentences[0].Text)
}

func TestNormalize_SpeakerRoles(t *testing.T) {
	raw := "Instructor: First, open the console. This propagates forward. " +
		"Student: Why does it fail? " +
		"Teacher: Check the logs."
	sentences, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, sentences, 4)

	assert.Equal(t, models.SpeakerInstructor, sentences[0].Speaker)
	// No prefix: inherits the last known role
	assert.Equal(t, models.SpeakerInstructor, sentences[1].Speaker)
	assert.Equal(t, models.SpeakerParticipant, sentences[2].Speaker)
	assert.Equal(t, models.SpeakerInstructor, sentences[3].Speaker)
}

func TestNormalize_UnknownSpeakerResetsRole(t *testing.T) {
	sentences, err := Normalize("Instructor: Deploy it. Alice: I tried that already.")
	require.NoError(t, err)
	require.Len(t, sentences, 2)
	assert.Equal(t, models.SpeakerInstructor, sentences[0].Speaker)
	assert.Equal(t, models.SpeakerUnknown, sentences[1].Speaker)
}

func TestNormalize_QuestionDetection(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"How does the scheduler work?", true},
		{"What happens next.", true}, // interrogative opener, period ending
		{"The scheduler assigns pods.", false},
		{"Can we retry the deployment.", true},
		{"It failed, right?", true},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			sentences, err := Normalize(tc.text)
			require.NoError(t, err)
			require.Len(t, sentences, 1)
			assert.Equal(t, tc.want, sentences[0].IsQuestion)
		})
	}
}

func TestNormalize_TransitionDetection(t *testing.T) {
	sentences, err := Normalize("That covers storage. Now let's look at networking. Networking uses VXLAN.")
	require.NoError(t, err)
	require.Len(t, sentences, 3)
	assert.False(t, sentences[0].IsTransition)
	assert.True(t, sentences[1].IsTransition)
	assert.False(t, sentences[2].IsTransition)
}

func TestNormalize_EmphasisScore(t *testing.T) {
	sentences, err := Normalize("It is important and critical to remember this key step. Nothing here.")
	require.NoError(t, err)
	require.Len(t, sentences, 2)

	// 4 emphasis tokens / 5 = 0.8
	assert.InDelta(t, 0.8, sentences[0].EmphasisScore, 1e-9)
	assert.Zero(t, sentences[1].EmphasisScore)
}

func TestNormalize_EmphasisScoreClipped(t *testing.T) {
	sentences, err := Normalize("Important, crucial, key, critical, essential, required, and you must always remember: never skip it.")
	require.NoError(t, err)
	require.Len(t, sentences, 1)
	assert.Equal(t, 1.0, sentences[0].EmphasisScore)
}

func TestNormalize_EmphasisMatchesWholeWordsOnly(t *testing.T) {
	sentences, err := Normalize("The monkey spread mustard and keyed in the notes. Unimportant details follow.")
	require.NoError(t, err)
	require.Len(t, sentences, 2)

	// "monkey" is not "key", "mustard" is not "must", "unimportant" is not
	// "important".
	assert.Zero(t, sentences[0].EmphasisScore)
	assert.Zero(t, sentences[1].EmphasisScore)
}

func TestNormalize_TransitionMatchesWholeWordsOnly(t *testing.T) {
	sentences, err := Normalize("We discussed mustard seeds. Now let's move on to sauces.")
	require.NoError(t, err)
	require.Len(t, sentences, 2)
	assert.False(t, sentences[0].IsTransition)
	assert.True(t, sentences[1].IsTransition)
}

func TestNormalize_ControlCharactersStripped(t *testing.T) {
	sentences, err := Normalize("Step one\x00 is easy.\x07 Step two follows.")
	require.NoError(t, err)
	require.Len(t, sentences, 2)
	assert.Equal(t, "Step one is easy.", sentences[0].Text)
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := "[00:10] Instructor: Configure the gateway first. " +
		"Student: What about the firewall? " +
		"Instructor: Open port 443, remember it is critical."
	first, err := Normalize(raw)
	require.NoError(t, err)

	// Re-normalizing the normalized text yields identical sentences.
	texts := make([]string, len(first))
	for i, s := range first {
		texts[i] = s.Text
	}
	second, err := Normalize(strings.Join(texts, " "))
	require.NoError(t, err)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Text, second[i].Text)
		assert.Equal(t, first[i].IsQuestion, second[i].IsQuestion)
		assert.Equal(t, first[i].IsTransition, second[i].IsTransition)
		assert.Equal(t, first[i].EmphasisScore, second[i].EmphasisScore)
	}
}

func TestNormalize_WhitespaceCollapse(t *testing.T) {
	sentences, err := Normalize("Too   many\n\n\nspaces   here.   And here\ttoo.")
	require.NoError(t, err)
	require.Len(t, sentences, 2)
	assert.Equal(t, "Too many spaces here.", sentences[0].Text)
	assert.Equal(t, "And here too.", sentences[1].Text)
}
