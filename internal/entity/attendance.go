package entity

// AttendanceDay is the body of attendance_requests/{dateKey} and
// attendance_log/{dateKey}: members keyed by uid.
type AttendanceDay map[string]AttendanceUser

// AttendanceMap holds every pending day keyed by date key.
type AttendanceMap map[string]AttendanceDay
