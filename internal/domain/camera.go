package domain

import "time"

// CameraState is the processing state of one camera.
type CameraState string

const (
	CameraOnline     CameraState = "online"
	CameraOffline    CameraState = "offline"
	CameraError      CameraState = "error"
	CameraConnecting CameraState = "connecting"
)

// IsValid checks if the camera state is valid.
func (s CameraState) IsValid() bool {
	switch s {
	case CameraOnline, CameraOffline, CameraError, CameraConnecting:
		return true
	default:
		return false
	}
}

// CameraStatus is the last reported status of a camera.
type CameraStatus struct {
	CameraID        int
	CameraName      string
	Status          CameraState
	FPS             float64
	QueueSize       int
	TotalFrames     int64
	ProcessedFrames int64
	Message         string
	UpdatedAt       time.Time
}

// EngineState is the state of the recognition engine.
type EngineState string

const (
	EngineStopped  EngineState = "stopped"
	EngineStarting EngineState = "starting"
	EngineRunning  EngineState = "running"
	EngineStopping EngineState = "stopping"
	EngineError    EngineState = "error"
)

// IsValid checks if the engine state is valid.
func (s EngineState) IsValid() bool {
	switch s {
	case EngineStopped, EngineStarting, EngineRunning, EngineStopping, EngineError:
		return true
	default:
		return false
	}
}

// EngineStatus is the last reported status of the recognition engine.
type EngineStatus struct {
	Status             EngineState
	CameraCount        int
	RunningCameraCount int
	Message            string
	UpdatedAt          time.Time
}

// SystemNotice is a free-form server notification.
type SystemNotice struct {
	Title      string
	Message    string
	Level      string
	Duration   time.Duration
	ReceivedAt time.Time
}

// ConnectionState is the state of the transport channel.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Closing
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}
