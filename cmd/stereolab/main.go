// Command stereolab runs an automated stereo-vision calibration and
// reconstruction experiment: five processing stages, quality analysis and
// report generation, all rooted in a timestamped run directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/stereolab/internal/analysis"
	"github.com/banshee-data/stereolab/internal/config"
	"github.com/banshee-data/stereolab/internal/fsutil"
	"github.com/banshee-data/stereolab/internal/monitoring"
	"github.com/banshee-data/stereolab/internal/pipeline"
	"github.com/banshee-data/stereolab/internal/report"
	"github.com/banshee-data/stereolab/internal/runstore"
	"github.com/banshee-data/stereolab/internal/viz"
)

const runStoreFile = "stereolab.db"

var (
	configPath = flag.String("config", "", "Path to experiment config JSON (built-in defaults when omitted or unreadable)")
	outputDir  = flag.String("output", "", "Run directory override (default: <base_dir>/experiment_<timestamp>)")
	setupOnly  = flag.Bool("setup-only", false, "Create the input directory skeleton and exit")
	verbose    = flag.Bool("verbose", false, "Log to stdout in addition to the run log file")
)

func main() {
	flag.Parse()

	if *setupOnly {
		if err := setupInputDirs(fsutil.NewOSFileSystem()); err != nil {
			log.Fatalf("setup failed: %v", err)
		}
		fmt.Println("input directories created; add calibration images and rerun")
		return
	}

	if !run() {
		os.Exit(1)
	}
}

// run executes one full experiment. It returns false when the pipeline failed;
// artifacts for the attempted prefix of stages are still written.
func run() bool {
	fs := fsutil.NewOSFileSystem()
	startedAt := time.Now()

	cfg := loadConfig(*configPath)
	runDir := resolveRunDir(cfg, *outputDir, startedAt)

	if err := fs.MkdirAll(filepath.Join(runDir, "logs"), 0o755); err != nil {
		log.Fatalf("create run directory: %v", err)
	}
	closeLog, err := setupLogging(runDir, *verbose)
	if err != nil {
		log.Fatalf("setup logging: %v", err)
	}
	defer closeLog()

	monitoring.Logf("stereolab: experiment %q starting, run dir %s", cfg.GetName(), runDir)

	backend := selectBackend(cfg, fs, runDir)
	controller := pipeline.NewController(cfg, backend, fs, runDir)
	if err := controller.CreateRunDirectories(); err != nil {
		log.Fatalf("create run directories: %v", err)
	}
	saveResolvedConfig(fs, cfg, runDir)

	memMonitor := monitoring.NewMemoryMonitor()
	memMonitor.TakeSnapshot(monitoring.MilestoneStart)

	success, store := controller.Run(context.Background())
	memMonitor.TakeSnapshot(monitoring.MilestoneProcessing)

	writer := report.NewWriter(fs, runDir)
	summary := report.BuildSummary(cfg, store, runDir, startedAt)
	if err := writer.Write(summary); err != nil {
		monitoring.Logf("stereolab: write summary: %v", err)
	}

	quality := runAnalysis(fs, writer, cfg, store, runDir)
	memMonitor.TakeSnapshot(monitoring.MilestoneAnalysis)

	writeReports(writer, cfg, summary, quality, store, fs, runDir, memMonitor.Report())
	memMonitor.TakeSnapshot(monitoring.MilestoneReports)

	if err := writer.WriteFinalSummary(summary.ExperimentInfo, memMonitor.Report(), time.Now()); err != nil {
		monitoring.Logf("stereolab: write final summary: %v", err)
	}

	recordRun(cfg, quality, store, runDir, startedAt)

	if success {
		monitoring.Logf("stereolab: experiment completed in %.2fs", store.TotalProcessingTime())
	} else {
		monitoring.Logf("stereolab: experiment FAILED after %d stage(s)", store.Len())
	}
	return success
}

// loadConfig loads the config file, falling back to built-in defaults on any
// load error. Config problems are never fatal.
func loadConfig(path string) *config.ExperimentConfig {
	if path == "" {
		return config.DefaultConfig()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Printf("config %s unusable (%v); using built-in defaults", path, err)
		return config.DefaultConfig()
	}
	return cfg
}

func resolveRunDir(cfg *config.ExperimentConfig, override string, startedAt time.Time) string {
	if override != "" {
		return override
	}
	name := "experiment"
	if cfg.GetUseTimestamp() {
		name = "experiment_" + startedAt.Format("20060102_150405")
	}
	return filepath.Join(cfg.GetOutputBaseDir(), name)
}

// setupLogging routes the standard logger and monitoring.Logf to the run log
// file, and also to stdout in verbose mode.
func setupLogging(runDir string, verbose bool) (func(), error) {
	logPath := filepath.Join(runDir, "logs", "experiment.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	var w io.Writer = f
	if verbose {
		w = io.MultiWriter(os.Stdout, f)
	}
	log.SetOutput(w)
	monitoring.SetLogger(log.Printf)

	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

// saveResolvedConfig writes the effective configuration under config/ so a run
// directory is self-describing even when defaults were used.
func saveResolvedConfig(fs fsutil.FileSystem, cfg *config.ExperimentConfig, runDir string) {
	w := report.NewWriter(fs, runDir)
	if err := w.WriteJSON(filepath.Join("config", "experiment_config.json"), cfg); err != nil {
		monitoring.Logf("stereolab: save resolved config: %v", err)
	}
}

// selectBackend uses the configured processing binary when it exists, and the
// deterministic simulation otherwise.
func selectBackend(cfg *config.ExperimentConfig, fs fsutil.FileSystem, runDir string) pipeline.Backend {
	if binary := cfg.GetBackendBinary(); binary != "" {
		if fs.Exists(binary) {
			return pipeline.NewCommandBackend(binary, runDir)
		}
		monitoring.Logf("stereolab: backend binary %s not found, using simulation", binary)
	} else {
		monitoring.Logf("stereolab: no backend binary configured, using simulation")
	}
	return pipeline.NewSimulatedBackend(fs, runDir)
}

// runAnalysis runs every analyzer and writes one artifact each under
// analysis/. Analyzer failures are logged, never fatal.
func runAnalysis(fs fsutil.FileSystem, writer *report.Writer, cfg *config.ExperimentConfig, store *pipeline.ResultStore, runDir string) *analysis.QualityAssessment {
	th := analysis.ThresholdsFromConfig(cfg)

	calibration := analysis.NewCalibrationAccuracyAnalyzer(th).Analyze(store)
	writeArtifact(writer, report.ArtifactCalibrationAccuracy, calibration)

	reconstruction := analysis.NewReconstructionQualityAnalyzer(th).Analyze(store)
	writeArtifact(writer, report.ArtifactReconstructionQuality, reconstruction)

	performance := analysis.NewProcessingPerformanceAnalyzer().Analyze(store)
	writeArtifact(writer, report.ArtifactProcessingPerformance, performance)

	benchmark := analysis.NewBenchmarkAnalyzer(analysis.DefaultBaseline).Analyze(store)
	writeArtifact(writer, report.ArtifactPerformanceBenchmark, benchmark)

	fileAnalyzer := analysis.NewFileAnalyzer(fs)
	if fa, err := fileAnalyzer.Analyze(runDir); err == nil {
		writeArtifact(writer, report.ArtifactFileAnalysis, fa)
	} else {
		monitoring.Logf("stereolab: file analysis: %v", err)
	}

	quality := analysis.NewQualityAssessor(th).Assess(store)
	writeArtifact(writer, report.ArtifactQualityAssessment, quality)
	return quality
}

func writeArtifact(writer *report.Writer, name string, v any) {
	if err := writer.WriteAnalysis(name, v); err != nil {
		monitoring.Logf("stereolab: write %s: %v", name, err)
	}
}

// writeReports renders the human-facing outputs: status text, Markdown report
// and visualizations, honoring the documentation toggles.
func writeReports(writer *report.Writer, cfg *config.ExperimentConfig, summary *report.Summary, quality *analysis.QualityAssessment, store *pipeline.ResultStore, fs fsutil.FileSystem, runDir string, memReport *monitoring.MemoryReport) {
	if err := writer.WriteStatus(summary); err != nil {
		monitoring.Logf("stereolab: write status: %v", err)
	}

	th := analysis.ThresholdsFromConfig(cfg)
	if cfg.GetGenerateMarkdown() {
		inputs := report.MarkdownInputs{
			Summary:        summary,
			Quality:        quality,
			Calibration:    analysis.NewCalibrationAccuracyAnalyzer(th).Analyze(store),
			Reconstruction: analysis.NewReconstructionQualityAnalyzer(th).Analyze(store),
			Performance:    analysis.NewProcessingPerformanceAnalyzer().Analyze(store),
			Benchmark:      analysis.NewBenchmarkAnalyzer(analysis.DefaultBaseline).Analyze(store),
		}
		if err := writer.WriteMarkdown(inputs); err != nil {
			monitoring.Logf("stereolab: write markdown report: %v", err)
		}
	}

	if cfg.GetGenerateCharts() {
		gen := viz.NewGenerator(fs, runDir)
		if err := gen.WriteDashboard(store, quality, memReport); err != nil {
			monitoring.Logf("stereolab: write dashboard: %v", err)
		}
		if err := gen.WriteTimingChart(store); err != nil {
			monitoring.Logf("stereolab: write timing chart: %v", err)
		}
	}
}

// recordRun appends the run to the cross-run history database next to the run
// directories. History failures are logged, never fatal.
func recordRun(cfg *config.ExperimentConfig, quality *analysis.QualityAssessment, store *pipeline.ResultStore, runDir string, startedAt time.Time) {
	dbPath := filepath.Join(filepath.Dir(runDir), runStoreFile)
	rs, err := runstore.Open(dbPath)
	if err != nil {
		monitoring.Logf("stereolab: open run history: %v", err)
		return
	}
	defer rs.Close()

	record := &runstore.RunRecord{
		ExperimentName: cfg.GetName(),
		RunDir:         runDir,
		OverallSuccess: store.OverallSuccess(),
		TotalTimeSec:   store.TotalProcessingTime(),
		StartedAt:      startedAt,
	}
	if quality != nil {
		record.OverallScore = &quality.OverallScore
		record.OverallGrade = &quality.OverallGrade
	}
	if recon, ok := store.Get(pipeline.StageReconstruction); ok && recon.Success {
		if recon.Metrics != nil && recon.Metrics.Reconstruction != nil && recon.Metrics.Reconstruction.PointCloudSize != nil {
			points := int64(*recon.Metrics.Reconstruction.PointCloudSize)
			record.PointCloudSize = &points
		}
	}
	if mono, ok := store.Get(pipeline.StageMonoCalibration); ok && mono.Success && mono.Metrics != nil && mono.Metrics.MonoCalibration != nil {
		m := mono.Metrics.MonoCalibration
		if m.LeftCamera.ReprojectionError != nil && m.RightCamera.ReprojectionError != nil {
			avg := (*m.LeftCamera.ReprojectionError + *m.RightCamera.ReprojectionError) / 2
			record.AvgCalibError = &avg
		}
	}

	if id, err := rs.Insert(record); err != nil {
		monitoring.Logf("stereolab: record run: %v", err)
	} else {
		monitoring.Logf("stereolab: run recorded as %s", id)
	}
}

// setupInputDirs creates the expected input folder skeleton with README
// placeholders describing what belongs in each.
func setupInputDirs(fs fsutil.FileSystem) error {
	dirs := map[string]string{
		"input/left":        "Left camera calibration images (chessboard views).\n",
		"input/right":       "Right camera calibration images (chessboard views).\n",
		"input/scene/left":  "Left camera scene images for reconstruction.\n",
		"input/scene/right": "Right camera scene images for reconstruction.\n",
	}
	for dir, readme := range dirs {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		if err := fs.WriteFile(filepath.Join(dir, "README.txt"), []byte(readme), 0o644); err != nil {
			return fmt.Errorf("write %s README: %w", dir, err)
		}
	}
	return nil
}
