package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cupart/internal/cascade"
	"cupart/internal/dataset"
	"cupart/internal/policy"
	"cupart/internal/split"
)

// writeFeatureDataset writes n two-feature records labelled i mod 6.
func writeFeatureDataset(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		label := split.Split(i % split.Count)
		f := dataset.Features{32, float64(i % split.Count), float64(i)}
		path := filepath.Join(dir, fmt.Sprintf("%d.csv", i))
		if err := os.WriteFile(path, []byte(dataset.EncodeCSV(f, label)), 0o644); err != nil {
			t.Fatalf("write record: %v", err)
		}
	}
	return dir
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("cupartctl %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestTrainInferAndInspect(t *testing.T) {
	data := writeFeatureDataset(t, 24)
	work := t.TempDir()
	artifacts := filepath.Join(work, "runs")
	models := filepath.Join(work, "models")
	reports := filepath.Join(work, "reports")

	out := execute(t, "train",
		"--artifacts-dir", artifacts,
		"--run-id", "run-e2e",
		"--dataset-dir", data,
		"--features", "2",
		"--database-elements", "24",
		"--training-targets", "12",
		"--validation-targets", "6",
		"--generations", "3",
		"--population", "4",
		"--elite-count", "1",
		"--specialization", "QT",
		"--workers", "2",
		"--seed", "3",
		"--report-dir", reports,
		"--model-dir", models,
		"--metrics-addr", "127.0.0.1:0",
	)
	if !strings.Contains(out, "run_id=run-e2e") || !strings.Contains(out, "generations=3") {
		t.Fatalf("unexpected train output: %s", out)
	}
	for _, path := range []string{
		filepath.Join(models, "QT.dot"),
		filepath.Join(reports, readableReportFile),
		filepath.Join(reports, compactReportFile),
		filepath.Join(artifacts, "run-e2e", "out_best.dot"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s: %v", path, err)
		}
	}

	out = execute(t, "runs", "--artifacts-dir", artifacts)
	if !strings.Contains(out, "run-e2e") || !strings.Contains(out, "QT") {
		t.Fatalf("unexpected runs output: %s", out)
	}

	out = execute(t, "history", "--artifacts-dir", artifacts, "--latest")
	if !strings.Contains(out, "run_id=run-e2e") || !strings.Contains(strings.ToLower(out), "best fitness") {
		t.Fatalf("unexpected history output: %s", out)
	}

	out = execute(t, "report", "plot", "--compact", filepath.Join(reports, compactReportFile), "--out", filepath.Join(work, "plots"))
	if _, err := os.Stat(filepath.Join(work, "plots", "QT_0.png")); err != nil {
		t.Fatalf("expected plot: %v\n%s", err, out)
	}

	out = execute(t, "infer",
		"--models", models,
		"--order", "QT",
		"--fallback", "NS",
		"--dataset-dir", data,
		"--features", "2",
		"--database-elements", "24",
		"--targets", "10",
		"--evaluations", "2",
	)
	if !strings.Contains(out, "evaluations=2 samples=20") {
		t.Fatalf("unexpected infer output: %s", out)
	}

	out = execute(t, "infer",
		"--mode", "vote",
		"--models", models,
		"--order", "QT",
		"--dataset-dir", data,
		"--features", "2",
		"--database-elements", "24",
		"--targets", "6",
	)
	if !strings.Contains(strings.ToLower(out), "fired") || !strings.Contains(out, "evaluations=1") {
		t.Fatalf("unexpected vote output: %s", out)
	}

	exported := filepath.Join(work, "exports")
	out = execute(t, "runs", "export", "--artifacts-dir", artifacts, "--run-id", "run-e2e", "--out", exported)
	if _, err := os.Stat(filepath.Join(exported, "run-e2e", "config.json")); err != nil {
		t.Fatalf("expected exported config: %v\n%s", err, out)
	}
}

// writeDirectionModels saves constant binary models for the direction
// tree; the model named fire always answers 1, the rest 0.
func writeDirectionModels(t *testing.T, inputs int, fire split.Specialization) string {
	t.Helper()
	dir := t.TempDir()
	for _, spec := range cascade.DirectionTreeSpecs() {
		p, err := policy.NewLinear(2, inputs)
		if err != nil {
			t.Fatalf("new linear: %v", err)
		}
		if spec.Name() == fire.Name() {
			p.SetBias(1, 1)
		} else {
			p.SetBias(0, 1)
		}
		if err := policy.Save(cascade.SpecModelPath(dir, spec), spec.Name(), p); err != nil {
			t.Fatalf("save %s: %v", spec.Name(), err)
		}
	}
	return dir
}

func TestInferWaterfall(t *testing.T) {
	data := writeFeatureDataset(t, 12)
	models := writeDirectionModels(t, 3, cascade.HorizontalGroup)

	out := execute(t, "infer",
		"--mode", "waterfall",
		"--models", models,
		"--dataset-dir", data,
		"--features", "2",
		"--database-elements", "12",
		"--targets", "6",
		"--workers", "3",
	)
	// Every sample falls through NS and QT, enters the horizontal branch and
	// is called BTH since the TTH model never fires.
	if !strings.Contains(out, "evaluations=1 samples=6 declined=0") {
		t.Fatalf("unexpected waterfall output: %s", out)
	}

	if err := os.Remove(cascade.SpecModelPath(models, cascade.HorizontalGroup)); err != nil {
		t.Fatalf("remove model: %v", err)
	}
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"infer", "--mode", "waterfall", "--models", models, "--dataset-dir", data, "--features", "2", "--database-elements", "12"})
	err := root.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "BTH+TTH.dot") {
		t.Fatalf("expected missing group model error, got %v", err)
	}
}

func TestInferMissingModel(t *testing.T) {
	data := writeFeatureDataset(t, 6)
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"infer", "--models", t.TempDir(), "--order", "QT", "--dataset-dir", data, "--features", "2", "--database-elements", "6"})
	err := root.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "QT.dot") {
		t.Fatalf("expected missing model error, got %v", err)
	}
}

func TestRunsEmpty(t *testing.T) {
	out := execute(t, "runs", "--artifacts-dir", t.TempDir())
	if !strings.Contains(out, "no runs found") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestRejectsUnknownLogFormat(t *testing.T) {
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"runs", "--artifacts-dir", t.TempDir(), "--log-format", "xml"})
	if err := root.ExecuteContext(context.Background()); err == nil || !strings.Contains(err.Error(), "log format") {
		t.Fatalf("expected log format error, got %v", err)
	}
}
