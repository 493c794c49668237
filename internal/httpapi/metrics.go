package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presensi_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	attendanceTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presensi_attendance_records_total",
		Help: "Attendance records created, by status.",
	}, []string{"status"})

	leaveDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presensi_leave_decisions_total",
		Help: "Administrator decisions on leave requests.",
	}, []string{"decision"})
)
