package dto

import "time"

// AdminDashboardResponse aggregates totals for the admin landing page.
type AdminDashboardResponse struct {
	TotalStudents  int64     `json:"total_students"`
	TotalClasses   int64     `json:"total_classes"`
	TotalMaterials int64     `json:"total_materials"`
	PaidAmount     int64     `json:"paid_amount"`
	UnpaidAmount   int64     `json:"unpaid_amount"`
	PaidRecords    int64     `json:"paid_records"`
	UnpaidRecords  int64     `json:"unpaid_records"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// StudentDashboardSummary holds the headline numbers of a student's dashboard.
type StudentDashboardSummary struct {
	TotalClasses  int   `json:"total_classes"`
	TotalFee      int64 `json:"total_fee"`
	UnpaidTuition int64 `json:"unpaid_tuition"`
}

// StudentDashboardResponse is the student landing page.
type StudentDashboardResponse struct {
	Summary StudentDashboardSummary `json:"summary"`
	Classes []ClassResponse         `json:"classes"`
}
