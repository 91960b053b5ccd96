package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Subject{},
		&Class{},
		&Group{},
		&Enrollment{},
		&GroupMembership{},
		&TuitionBatch{},
		&TuitionRecord{},
		&TuitionPayment{},
		&Exam{},
		&ExamClass{},
		&Grade{},
		&Material{},
		&ActivityLog{},
	}
}
