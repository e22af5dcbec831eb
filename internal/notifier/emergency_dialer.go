package notifier

import (
	"fmt"
	"time"

	"github.com/samalpartha/CareCircle-sub001/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DialRequest is posted to the emergency dialer webhook
type DialRequest struct {
	AlertID          string   `json:"alert_id"`
	SubjectID        string   `json:"subject_id"`
	Recommendation   string   `json:"recommendation"`
	Script           string   `json:"script"`
	KeyInformation   []string `json:"key_information"`
	CurrentCondition string   `json:"current_condition"`
}

// DialResponse is the dialer's acknowledgement
type DialResponse struct {
	CallID string `json:"call_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// EmergencyDialer hands call scripts to the telephony webhook
type EmergencyDialer struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewEmergencyDialer creates a dialer client. Retries are left to resty.
func NewEmergencyDialer(url string, timeout time.Duration, retries int, logger *zap.Logger) *EmergencyDialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &EmergencyDialer{
		httpClient: client,
		url:        url,
		logger:     logger,
	}
}

// Dial sends the plan's call script. Plans without a script are rejected.
func (d *EmergencyDialer) Dial(subjectID string, plan *models.ActionPlan) (*DialResponse, error) {
	if plan == nil || plan.CallScript == nil {
		return nil, models.NewValidationError("action plan has no call script")
	}

	req := DialRequest{
		AlertID:          plan.AlertID,
		SubjectID:        subjectID,
		Recommendation:   string(plan.Recommendation),
		Script:           plan.CallScript.Script,
		KeyInformation:   plan.CallScript.KeyInformation,
		CurrentCondition: plan.CallScript.CurrentCondition,
	}

	d.logger.Info("Calling emergency dialer",
		zap.String("alert_id", plan.AlertID),
		zap.String("subject_id", subjectID),
	)

	var result DialResponse
	resp, err := d.httpClient.R().
		SetBody(req).
		SetResult(&result).
		SetError(&result).
		Post(d.url)
	if err != nil {
		d.logger.Error("Emergency dialer call failed",
			zap.String("alert_id", plan.AlertID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to call emergency dialer: %w", err)
	}
	if resp.IsError() {
		d.logger.Error("Emergency dialer returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("error", result.Error),
		)
		return nil, fmt.Errorf("emergency dialer error: %s (status: %d)", result.Error, resp.StatusCode())
	}

	d.logger.Info("Emergency call placed",
		zap.String("alert_id", plan.AlertID),
		zap.String("call_id", result.CallID),
	)
	return &result, nil
}
