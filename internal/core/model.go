package core

import "time"

// Metrics holds the evaluation metrics reported by a training run,
// keyed by name (accuracy, auc, val_recall, ...).
type Metrics map[string]float64

// Model is a freshly trained model that has not been published yet.
type Model struct {
	// Artifacts maps a file name to the path of the artifact produced by
	// the trainer (weights, scaler, ...).
	Artifacts map[string]string
	Metrics   Metrics
	Info      TrainingInfo
}

// TrainingInfo describes the data a model was trained on.
type TrainingInfo struct {
	Samples    int    `json:"total_samples"`
	Churned    int    `json:"churned"`
	NotChurned int    `json:"not_churned"`
	Mode       string `json:"training_mode"`
}

// Training modes recorded with each model version.
const (
	TrainingModeInitial     = "initial"
	TrainingModeIncremental = "incremental"
)

// ModelVersion is a model that has been published to a registry.
type ModelVersion struct {
	ID        string            `json:"version_id"`
	Sequence  int               `json:"sequence"`
	CreatedAt time.Time         `json:"timestamp"`
	Artifacts map[string]string `json:"artifacts"`
	Metrics   Metrics           `json:"metrics"`
	Info      TrainingInfo      `json:"training_info"`
}
