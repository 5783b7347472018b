package export

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const controllerChat = "2019-04-13 18:59:06 Carolin: Hallo!\n" +
	"2019-04-13 19:00:00 Marcel: <Anhang: IMG-1.jpg>\n" +
	"2019-04-14 09:15:00 Carolin: Bis später\n"

// writeChatSource lays out a source folder with a chat log and one
// attachment next to it.
func writeChatSource(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat.txt"), []byte(controllerChat), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "IMG-1.jpg"), []byte{0xff, 0xd8, 0xff, 0xd9}, 0o644))
	return dir
}

func runContext(t *testing.T, src, dest string) *ExportContext {
	t.Helper()
	ectx := NewExportContext(filepath.Join(src, "chat.txt"), dest, FullSelection())
	ectx.BaseName = "CHAT"
	ectx.MeOverride = "Marcel"
	return ectx
}

func TestRunFullExport(t *testing.T) {
	src := writeChatSource(t)
	dest := filepath.Join(t.TempDir(), "out")

	var pending, steps []StepKind
	ctrl := NewController(nil, func(p StepProgress) {
		switch p.State {
		case StatePending:
			pending = append(pending, p.Kind)
		case StateDone:
			steps = append(steps, p.Kind)
		}
	})
	result, err := ctrl.Run(context.Background(), runContext(t, src, dest))
	require.NoError(t, err)

	// The whole plan is announced before the first step runs
	assert.Equal(t, []StepKind{
		StepRawArchive, StepSidecar, StepHTMLMax, StepHTMLMid, StepHTMLMin, StepMarkdown,
	}, pending)
	assert.Equal(t, []StepKind{
		StepRawArchive, StepSidecar, StepHTMLMax, StepHTMLMid, StepHTMLMin, StepMarkdown, "finalize",
	}, steps)

	for _, name := range []string{
		"Sources", "CHAT-sdc", "CHAT-sdc.html",
		"CHAT-max.html", "CHAT-mid.html", "CHAT-min.html", "CHAT.md",
		"CHAT.manifest.json", "CHAT.sha256",
	} {
		_, err := os.Stat(filepath.Join(dest, name))
		assert.NoError(t, err, "missing %s", name)
	}
	assert.Len(t, result.Published, 9)
	assert.False(t, result.Cancelled)

	final := result.Steps[len(result.Steps)-1]
	assert.Equal(t, StepKind("finalize"), final.Kind)
	assert.Equal(t, StateDone, final.State)
	assert.False(t, final.StartedAt.IsZero())

	data, err := os.ReadFile(filepath.Join(dest, "CHAT.manifest.json"))
	require.NoError(t, err)
	var m Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "CHAT", m.BaseName)
	assert.Equal(t, "Marcel", m.Participants.Me)

	// Sidecar holds the attachment, raw archive holds the whole source.
	_, err = os.Stat(filepath.Join(dest, "CHAT-sdc", "IMG-1.jpg"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dest, "Sources", "chat.txt"))
	assert.NoError(t, err)
}

func TestRunPausesOnCollision(t *testing.T) {
	src := writeChatSource(t)
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "CHAT.md"), []byte("old"), 0o644))

	ctrl := NewController(nil, nil)
	ectx := runContext(t, src, dest)
	_, err := ctrl.Run(context.Background(), ectx)

	oe, ok := AsOutputExists(err)
	require.True(t, ok, "expected collision decision point, got %v", err)
	require.Len(t, oe.Collisions, 1)
	assert.Equal(t, "CHAT.md", oe.Collisions[0].Name)

	// Nothing was published and the occupied file is untouched.
	entries, rerr := os.ReadDir(dest)
	require.NoError(t, rerr)
	assert.Len(t, entries, 1)

	// Parse and preflight results are cached for the retry.
	assert.NotNil(t, ectx.Prepared)
	assert.NotNil(t, ectx.Preflight)
}

func TestRunReplaceAfterDecision(t *testing.T) {
	src := writeChatSource(t)
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "CHAT.md"), []byte("old"), 0o644))

	ctrl := NewController(nil, nil)
	ectx := runContext(t, src, dest)
	_, err := ctrl.Run(context.Background(), ectx)
	_, ok := AsOutputExists(err)
	require.True(t, ok)

	ectx.Policy = CollisionReplace
	result, err := ctrl.Run(context.Background(), ectx)
	require.NoError(t, err)
	assert.Equal(t, "CHAT", result.BaseName)

	data, err := os.ReadFile(filepath.Join(dest, "CHAT.md"))
	require.NoError(t, err)
	assert.NotEqual(t, "old", string(data))
}

func TestRunKeepBoth(t *testing.T) {
	src := writeChatSource(t)
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "CHAT.md"), []byte("old"), 0o644))

	ctrl := NewController(nil, nil)
	ectx := runContext(t, src, dest)
	ectx.Policy = CollisionKeepBoth
	result, err := ctrl.Run(context.Background(), ectx)
	require.NoError(t, err)

	want := AlternateBaseName("CHAT", dest, 0)
	assert.Equal(t, want, result.BaseName)

	data, err := os.ReadFile(filepath.Join(dest, "CHAT.md"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data), "existing artifact must survive keep-both")
	_, err = os.Stat(filepath.Join(dest, want+".md"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dest, RawArchiveDirName(want)))
	assert.NoError(t, err)
}

func TestRunFailPolicy(t *testing.T) {
	src := writeChatSource(t)
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "CHAT.md"), []byte("old"), 0o644))

	ctrl := NewController(nil, nil)
	ectx := runContext(t, src, dest)
	ectx.Policy = CollisionFail
	_, err := ctrl.Run(context.Background(), ectx)
	require.Error(t, err)
	_, ok := AsOutputExists(err)
	assert.True(t, ok, "fail policy should still carry the collision detail")
}

func TestRunSuffixArtifactsBlockReplace(t *testing.T) {
	src := writeChatSource(t)
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "CHAT (1)-max.html"), []byte("stray"), 0o644))

	ctrl := NewController(nil, nil)
	ectx := runContext(t, src, dest)
	ectx.Policy = CollisionReplace
	_, err := ctrl.Run(context.Background(), ectx)

	var se *SuffixArtifactsError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{"CHAT (1)-max.html"}, se.Names)
}

func TestRunCancellationRollsBack(t *testing.T) {
	src := writeChatSource(t)
	dest := filepath.Join(t.TempDir(), "out")

	ctx, cancel := context.WithCancel(context.Background())
	ctrl := NewController(nil, func(p StepProgress) {
		// Cancel once the sidecar landed so there is something to roll back.
		if p.Kind == StepSidecar && p.State == StateDone {
			cancel()
		}
	})
	result, err := ctrl.Run(ctx, runContext(t, src, dest))
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.True(t, result.Cancelled)

	// Everything already published was rolled back.
	entries, rerr := os.ReadDir(dest)
	if rerr == nil {
		assert.Empty(t, entries)
	} else {
		assert.True(t, os.IsNotExist(rerr))
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	ctrl := NewController(nil, nil)
	token, err := ctrl.acquire()
	require.NoError(t, err)
	defer ctrl.release(token)

	_, err = ctrl.Run(context.Background(), runContext(t, t.TempDir(), t.TempDir()))
	assert.ErrorIs(t, err, ErrRunActive)
}

func TestRunSkipsSidecarWithoutAttachments(t *testing.T) {
	src := t.TempDir()
	chat := "2019-04-13 18:59:06 Carolin: Hallo!\n2019-04-13 19:00:00 Marcel: Hi\n"
	require.NoError(t, os.WriteFile(filepath.Join(src, "chat.txt"), []byte(chat), 0o644))
	dest := filepath.Join(t.TempDir(), "out")

	ctrl := NewController(nil, nil)
	ectx := runContext(t, src, dest)
	ectx.Selection = ArtifactSelection{Sidecar: true, Markdown: true}
	result, err := ctrl.Run(context.Background(), ectx)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"CHAT.md", "CHAT.manifest.json", "CHAT.sha256"}, result.Published)
	assert.False(t, result.Manifest.Flags["sidecar"], "manifest must reflect the skipped step")
}

func TestRunRepairsDriftDuringFinalize(t *testing.T) {
	src := writeChatSource(t)
	want := time.Date(2019, 4, 13, 19, 0, 0, 0, time.Local)
	require.NoError(t, os.Chtimes(filepath.Join(src, "IMG-1.jpg"), want, want))
	dest := filepath.Join(t.TempDir(), "out")

	// Skew a published asset after the last artifact step so only the
	// closing guard check can see it.
	published := filepath.Join(dest, "CHAT-sdc", "IMG-1.jpg")
	skew := time.Now().Add(-48 * time.Hour)
	ctrl := NewController(nil, func(p StepProgress) {
		if p.Kind == StepMarkdown && p.State == StateDone {
			require.NoError(t, os.Chtimes(published, skew, skew))
		}
	})
	_, err := ctrl.Run(context.Background(), runContext(t, src, dest))
	require.NoError(t, err)

	info, err := os.Stat(published)
	require.NoError(t, err)
	assert.WithinDuration(t, want, info.ModTime(), 2*time.Second)
}

func TestRunPartialSelection(t *testing.T) {
	src := writeChatSource(t)
	dest := filepath.Join(t.TempDir(), "out")

	ctrl := NewController(nil, nil)
	ectx := runContext(t, src, dest)
	ectx.Selection = ArtifactSelection{Sidecar: true, Markdown: true}
	result, err := ctrl.Run(context.Background(), ectx)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"CHAT-sdc", "CHAT-sdc.html", "CHAT.md", "CHAT.manifest.json", "CHAT.sha256",
	}, result.Published)
	_, err = os.Stat(filepath.Join(dest, "CHAT-max.html"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dest, "Sources"))
	assert.True(t, os.IsNotExist(err))
}
