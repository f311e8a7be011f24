package zenforce

import "fmt"

// Severity indicates how serious an audit warning is.
type Severity string

const (
	SeverityInfo    Severity = "info"    // Informational (might be expected)
	SeverityWarning Severity = "warning" // Potentially problematic
	SeverityError   Severity = "error"   // Dataset likely not reconciliation-ready
)

// WarningCode is a machine-readable identifier for audit warnings.
type WarningCode string

const (
	WarningCodeRowCountMismatch      WarningCode = "ROW_COUNT_MISMATCH"
	WarningCodeAuditSummaryDisagrees WarningCode = "AUDIT_SUMMARY_DISAGREES"
	WarningCodeResidualNulls         WarningCode = "RESIDUAL_NULLS"
	WarningCodeCompositeKeyMissing   WarningCode = "COMPOSITE_KEY_MISSING"
	WarningCodeIntegrityNotPass      WarningCode = "INTEGRITY_NOT_PASS"
	WarningCodeIntegrityUnknown      WarningCode = "INTEGRITY_UNKNOWN"
)

// AuditWarning represents a potential inconsistency in a reconciliation
// summary. These are informational - the client does not reject summaries
// based on warnings. The backend's auditor is the source of truth.
type AuditWarning struct {
	Code     WarningCode // Machine-readable code
	Message  string      // Human-readable warning
	Severity Severity    // How serious this warning is
}

// AuditWarnings cross-checks a summary's row arithmetic and audit record and
// returns potential issues. Callers can choose to show warnings or ignore
// them; an empty slice means the summary is internally consistent.
func AuditWarnings(s *ReconciliationSummary) []AuditWarning {
	if s == nil {
		return nil
	}

	var warnings []AuditWarning

	if s.CleanRows+s.DuplicatesRemoved > s.OriginalRows {
		warnings = append(warnings, AuditWarning{
			Code:     WarningCodeRowCountMismatch,
			Severity: SeverityError,
			Message: fmt.Sprintf("clean rows (%d) + duplicates removed (%d) exceed original rows (%d)",
				s.CleanRows, s.DuplicatesRemoved, s.OriginalRows),
		})
	}

	if s.Audit.CleanRowCount != s.CleanRows || s.Audit.OriginalRowCount != s.OriginalRows {
		warnings = append(warnings, AuditWarning{
			Code:     WarningCodeAuditSummaryDisagrees,
			Severity: SeverityWarning,
			Message: fmt.Sprintf("audit record (%d/%d rows) disagrees with summary (%d/%d rows)",
				s.Audit.CleanRowCount, s.Audit.OriginalRowCount, s.CleanRows, s.OriginalRows),
		})
	}

	if s.Audit.ResidualNulls > 0 {
		warnings = append(warnings, AuditWarning{
			Code:     WarningCodeResidualNulls,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("%d null values remain after cleaning", s.Audit.ResidualNulls),
		})
	}

	if !s.Audit.CompositeKeyPresent {
		warnings = append(warnings, AuditWarning{
			Code:     WarningCodeCompositeKeyMissing,
			Severity: SeverityWarning,
			Message:  "cleaned dataset has no composite key column",
		})
	}

	switch s.Audit.IntegrityStatus {
	case IntegrityPass:
	case IntegrityWarn, IntegrityFail:
		warnings = append(warnings, AuditWarning{
			Code:     WarningCodeIntegrityNotPass,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("auditor reported integrity status %s", s.Audit.IntegrityStatus),
		})
	default:
		warnings = append(warnings, AuditWarning{
			Code:     WarningCodeIntegrityUnknown,
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("unrecognized integrity status %q", s.Audit.IntegrityStatus),
		})
	}

	return warnings
}

// FilterWarningsBySeverity returns warnings matching the specified severities.
func FilterWarningsBySeverity(warnings []AuditWarning, severities ...Severity) []AuditWarning {
	severityMap := make(map[Severity]bool)
	for _, s := range severities {
		severityMap[s] = true
	}

	filtered := make([]AuditWarning, 0)
	for _, w := range warnings {
		if severityMap[w.Severity] {
			filtered = append(filtered, w)
		}
	}
	return filtered
}
