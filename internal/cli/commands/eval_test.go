package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/recvariant/internal/cli/config"
	"github.com/leapstack-labs/recvariant/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.DiscardHandler)

func TestEvalFiles(t *testing.T) {
	_, files := testutil.SetupTreeFiles(t)

	results, err := evalFiles(context.Background(), files, 1, discard)
	require.NoError(t, err)
	require.Len(t, results, 3)

	tests := []struct {
		sum, depth, leaves int
		form               string
	}{
		{3, 2, 2, "Branch(Leaf(1), Leaf(2))"},
		{6, 3, 3, "Branch(Branch(Leaf(1), Leaf(2)), Leaf(3))"},
		{4, 1, 1, "Leaf(4)"},
	}
	for i, want := range tests {
		got := results[i]
		assert.Equal(t, files[i], got.File)
		assert.Equal(t, want.sum, got.Sum, got.File)
		assert.Equal(t, want.depth, got.Depth, got.File)
		assert.Equal(t, want.leaves, got.Leaves, got.File)
		assert.Equal(t, want.form, got.Form, got.File)
		assert.Nil(t, got.Scaled)
	}
}

func TestEvalFiles_Scale(t *testing.T) {
	_, files := testutil.SetupTreeFiles(t)

	results, err := evalFiles(context.Background(), files[1:2], 10, discard)
	require.NoError(t, err)

	res := results[0]
	require.NotNil(t, res.Scaled)
	assert.Equal(t, 60, res.Scaled.Sum)
	assert.Equal(t, "Branch(Branch(Leaf(10), Leaf(20)), Leaf(30))", res.Scaled.Form)
	assert.Equal(t, 6, res.Sum, "original tree is untouched")
	assert.Equal(t, "Branch(Branch(Leaf(1), Leaf(2)), Leaf(3))", res.Form)
}

func TestEvalFiles_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := testutil.WriteTree(t, dir, "bad.yaml", "branch: [1]\n")
	good := testutil.WriteTree(t, dir, "good.yaml", "1\n")

	tests := []struct {
		name    string
		files   []string
		errText string
	}{
		{"decode error", []string{good, bad}, "failed to decode"},
		{"missing file", []string{filepath.Join(dir, "missing.yaml")}, "failed to read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evalFiles(context.Background(), tt.files, 1, discard)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestRenderEval(t *testing.T) {
	_, files := testutil.SetupTreeFiles(t)
	results, err := evalFiles(context.Background(), files[:1], 2, discard)
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		tr := testutil.NewTestRendererJSON()
		require.NoError(t, renderEval(tr.Renderer, results))

		var got []map[string]any
		require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
		require.Len(t, got, 1)
		assert.EqualValues(t, 3, got[0]["sum"])
		assert.Equal(t, "Branch(Leaf(1), Leaf(2))", got[0]["form"])

		scaled, ok := got[0]["scaled"].(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, 6, scaled["sum"])
		assert.EqualValues(t, 2, scaled["factor"])
	})

	t.Run("markdown", func(t *testing.T) {
		tr := testutil.NewTestRendererMarkdown()
		require.NoError(t, renderEval(tr.Renderer, results))

		out := tr.Output()
		testutil.AssertNoANSI(t, out)
		testutil.AssertValidMarkdown(t, out)
		assert.Contains(t, out, "| File | Sum | Depth | Leaves | Form | Scaled Sum | Scaled Form |")
		assert.Contains(t, out, "Branch(Leaf(2), Leaf(4))")
		assert.Contains(t, out, "6 (x2)")
	})

	t.Run("text", func(t *testing.T) {
		tr := testutil.NewTestRendererText()
		require.NoError(t, renderEval(tr.Renderer, results))
		assert.Contains(t, tr.Output(), "SCALED SUM")
	})
}

func TestEvalCommand(t *testing.T) {
	config.ResetConfig()
	_, files := testutil.SetupTreeFiles(t)

	tests := []struct {
		name    string
		args    []string
		wantOut []string
		wantErr string
	}{
		{
			name:    "all files",
			args:    files,
			wantOut: []string{"Leaf(4)", "Branch(Leaf(1), Leaf(2))", "| 6 |"},
		},
		{
			name:    "scaled",
			args:    append([]string{"--scale", "3"}, files[0]),
			wantOut: []string{"9 (x3)", "Branch(Leaf(3), Leaf(6))"},
		},
		{
			name:    "zero scale",
			args:    append([]string{"--scale", "0"}, files[0]),
			wantErr: "scale must be non-zero",
		},
		{
			name:    "no files",
			args:    []string{},
			wantErr: "requires at least 1 arg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewEvalCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(new(bytes.Buffer))
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			for _, want := range tt.wantOut {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestEvalCommand_ScaleFromConfig(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	t.Setenv("RECVARIANT_SCALE", "5")

	_, err := config.LoadConfig("", nil)
	require.NoError(t, err)

	_, files := testutil.SetupTreeFiles(t)
	cmd := NewEvalCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs(files[2:])

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "20 (x5)")
}

func TestFileWatcher(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteTree(t, dir, "watched.yaml", "1\n")
	other := testutil.WriteTree(t, dir, "other.yaml", "2\n")

	fw, err := newFileWatcher([]string{path}, discard)
	require.NoError(t, err)
	defer func() { _ = fw.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- fw.Run(ctx, func(file string) { changed <- file })
	}()

	require.NoError(t, os.WriteFile(other, []byte("3\n"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("[1, 2]\n"), 0644))

	select {
	case file := <-changed:
		assert.Equal(t, path, file)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	res, err := evalFile(path, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Sum)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
