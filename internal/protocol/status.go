package protocol

import (
	"strings"
	"time"

	"github.com/1063537326/video-warning-0127/internal/domain"
)

// ConnectInfo is the server greeting sent right after the upgrade.
type ConnectInfo struct {
	ClientID string `json:"client_id"`
	Message  string `json:"message"`
}

// DecodeConnect extracts the client id assigned by the server.
func DecodeConnect(env Envelope) (ConnectInfo, error) {
	var info ConnectInfo
	if err := env.decodeData(&info); err != nil {
		return ConnectInfo{}, err
	}
	info.ClientID = strings.TrimSpace(info.ClientID)
	return info, nil
}

type cameraPayload struct {
	CameraID        flexInt   `json:"camera_id"`
	CameraName      string    `json:"camera_name"`
	Status          string    `json:"status"`
	FPS             flexFloat `json:"fps"`
	QueueSize       flexInt   `json:"queue_size"`
	TotalFrames     flexInt   `json:"total_frames"`
	ProcessedFrames flexInt   `json:"processed_frames"`
	Message         string    `json:"message"`
	Error           string    `json:"error"`
}

type cameraBatch struct {
	Batch    bool            `json:"batch"`
	Statuses []cameraPayload `json:"statuses"`
}

// DecodeCameraStatus returns the camera statuses carried by a frame. Both
// the single and the batch shape are accepted. Entries without a camera id
// are skipped.
func DecodeCameraStatus(env Envelope, at time.Time) ([]domain.CameraStatus, error) {
	var batch cameraBatch
	if err := env.decodeData(&batch); err != nil {
		return nil, err
	}
	payloads := batch.Statuses
	if !batch.Batch {
		var single cameraPayload
		if err := env.decodeData(&single); err != nil {
			return nil, err
		}
		payloads = []cameraPayload{single}
	}

	out := make([]domain.CameraStatus, 0, len(payloads))
	for _, p := range payloads {
		if !p.CameraID.Set || p.CameraID.Value <= 0 {
			continue
		}
		msg := p.Message
		if msg == "" {
			msg = p.Error
		}
		out = append(out, domain.CameraStatus{
			CameraID:        int(p.CameraID.Value),
			CameraName:      p.CameraName,
			Status:          domain.CameraState(strings.ToLower(strings.TrimSpace(p.Status))),
			FPS:             p.FPS.Value,
			QueueSize:       int(p.QueueSize.Value),
			TotalFrames:     p.TotalFrames.Value,
			ProcessedFrames: p.ProcessedFrames.Value,
			Message:         msg,
			UpdatedAt:       at,
		})
	}
	return out, nil
}

type enginePayload struct {
	Status             string  `json:"status"`
	CameraCount        flexInt `json:"camera_count"`
	RunningCameraCount flexInt `json:"running_camera_count"`
	RunningCount       flexInt `json:"running_count"`
	Message            string  `json:"message"`
}

// DecodeEngineStatus decodes an engine_status frame.
func DecodeEngineStatus(env Envelope, at time.Time) (domain.EngineStatus, error) {
	var p enginePayload
	if err := env.decodeData(&p); err != nil {
		return domain.EngineStatus{}, err
	}
	running := p.RunningCameraCount
	if !running.Set {
		running = p.RunningCount
	}
	return domain.EngineStatus{
		Status:             domain.EngineState(strings.ToLower(strings.TrimSpace(p.Status))),
		CameraCount:        int(p.CameraCount.Value),
		RunningCameraCount: int(running.Value),
		Message:            p.Message,
		UpdatedAt:          at,
	}, nil
}

// DefaultNoticeDuration is used when a notification frame has no duration.
const DefaultNoticeDuration = 5 * time.Second

type noticePayload struct {
	Title    string  `json:"title"`
	Message  string  `json:"message"`
	Level    string  `json:"level"`
	Duration flexInt `json:"duration"` // milliseconds
}

// DecodeNotice decodes a notification frame.
func DecodeNotice(env Envelope, at time.Time) (domain.SystemNotice, error) {
	var p noticePayload
	if err := env.decodeData(&p); err != nil {
		return domain.SystemNotice{}, err
	}
	d := DefaultNoticeDuration
	if p.Duration.Set && p.Duration.Value > 0 {
		d = time.Duration(p.Duration.Value) * time.Millisecond
	}
	level := strings.ToLower(strings.TrimSpace(p.Level))
	if level == "" {
		level = "info"
	}
	return domain.SystemNotice{
		Title:      p.Title,
		Message:    p.Message,
		Level:      level,
		Duration:   d,
		ReceivedAt: at,
	}, nil
}

// ServerError is the payload of an error frame.
type ServerError struct {
	Code    string
	Message string
}

func (e ServerError) Error() string {
	if e.Code == "" {
		return "server error: " + e.Message
	}
	return "server error " + e.Code + ": " + e.Message
}

type errorPayload struct {
	Code    flexString `json:"code"`
	Message string     `json:"message"`
	Detail  string     `json:"detail"`
	Error   string     `json:"error"`
}

// DecodeError decodes an error frame. A bare string payload is used as the message.
func DecodeError(env Envelope) ServerError {
	var p errorPayload
	if err := env.decodeData(&p); err != nil {
		var msg string
		if env.decodeData(&msg) == nil {
			return ServerError{Message: msg}
		}
		return ServerError{Message: strings.TrimSpace(string(env.Data))}
	}
	msg := p.Message
	if msg == "" {
		msg = p.Detail
	}
	if msg == "" {
		msg = p.Error
	}
	return ServerError{Code: string(p.Code), Message: msg}
}
