package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/leyuan/points-mall/config"
)

var smsHTTPClient = &http.Client{Timeout: 5 * time.Second}

// SendSMSCode delivers a verification code through the configured gateway.
// With no gateway configured the code is logged instead, which is the
// intended behavior for local development.
func SendSMSCode(phone, code string) error {
	cfg := config.Get()
	if cfg.SMSGatewayURL == "" {
		Sugar.Infof("sms gateway not configured, code for %s is %s", phone, code)
		return nil
	}

	payload := map[string]string{
		"phone": phone,
		"sign":  cfg.SMSSignName,
		"text":  fmt.Sprintf("您的验证码是 %s，%d 分钟内有效。", code, cfg.SMSCodeTTLSec/60),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, cfg.SMSGatewayURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.SMSGatewayKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.SMSGatewayKey)
	}

	resp, err := smsHTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}
