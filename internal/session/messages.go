package session

import (
	"fmt"
	"html"
	"time"

	"github.com/foxseedlab/meetbot/internal/meeting"
)

const (
	MessageSessionStarted = "Session started. The assistant is joining the meeting."
	MessageSessionQueued  = "Session queued. It will join once the current meeting ends."
	MessageSessionBusy    = "Another meeting is being recorded. Try again when it ends."

	deliverySubjectFormat = "Meeting Summary - %s - %s"
	deliveryDateLayout    = "Jan 02, 2006"
	deliveryDetailLayout  = "January 02, 2006 at 03:04 PM"
)

func StartMessage(snap Snapshot) string {
	if snap.Queued {
		return MessageSessionQueued
	}
	return MessageSessionStarted
}

// EndReasonDetail describes why the live phase of a meeting ended.
func EndReasonDetail(reason EndReason) string {
	switch reason {
	case EndReasonStopped:
		return "The session was stopped on request."
	case EndReasonMaxDurationReached:
		return "The maximum meeting duration was reached."
	case EndReasonRemoteEnded:
		return "The meeting ended."
	case EndReasonImported:
		return "The recording was imported."
	default:
		return ""
	}
}

func deliverySubject(platform meeting.Platform, date time.Time) string {
	return fmt.Sprintf(deliverySubjectFormat, date.Format(deliveryDateLayout), platform.DisplayName())
}

func defaultDeliveryText(platform meeting.Platform, date time.Time) string {
	return fmt.Sprintf(`Hello,

Your meeting summary is ready. The detailed report is attached to this email.

Meeting details:
Date: %s
Platform: %s

The attached PDF contains the executive summary, key discussion points, decisions made and action items.

This email was generated automatically. Please verify important details against the original meeting recording.`,
		date.Format(deliveryDetailLayout), platform.DisplayName())
}

func defaultDeliveryHTML(platform meeting.Platform, date time.Time) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
<div style="background-color: #2d3748; color: white; padding: 20px; text-align: center;">
<h1 style="margin: 0;">Meeting Summary Report</h1>
</div>
<div style="background-color: #f7fafc; padding: 20px;">
<p>Hello,</p>
<p>Your meeting summary is ready. Please find the detailed report attached to this email.</p>
<p><strong>Meeting Details:</strong><br>Date: %s<br>Platform: %s</p>
<p>The attached PDF contains:</p>
<ul><li>Executive Summary</li><li>Key Discussion Points</li><li>Decisions Made</li><li>Action Items</li></ul>
</div>
<p style="font-size: 12px; color: #718096; text-align: center;">This email was generated automatically. Please verify important details against the original meeting recording.</p>
</div>
</body>
</html>`, html.EscapeString(date.Format(deliveryDetailLayout)), html.EscapeString(platform.DisplayName()))
}
