package middleware

import "context"

type contextKey string

const ctxStaff contextKey = "staff"

// Staff is the authenticated caller as read from the access token.
type Staff struct {
	UserID string
	Name   string
	Role   string
}

// StaffFromContext returns the caller stored by Auth.
func StaffFromContext(ctx context.Context) (Staff, bool) {
	if ctx == nil {
		return Staff{}, false
	}
	staff, ok := ctx.Value(ctxStaff).(Staff)
	return staff, ok
}

// WithStaff stores the caller for downstream handlers.
func WithStaff(ctx context.Context, staff Staff) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStaff, staff)
}

func UserIDFromContext(ctx context.Context) string {
	staff, _ := StaffFromContext(ctx)
	return staff.UserID
}

func RoleFromContext(ctx context.Context) string {
	staff, _ := StaffFromContext(ctx)
	return staff.Role
}

func UserNameFromContext(ctx context.Context) string {
	staff, _ := StaffFromContext(ctx)
	return staff.Name
}

// WithUserID sets only the caller id, keeping any role already present.
func WithUserID(ctx context.Context, userID string) context.Context {
	staff, _ := StaffFromContext(ctx)
	staff.UserID = userID
	return WithStaff(ctx, staff)
}

// WithRole sets only the caller role, keeping any id already present.
func WithRole(ctx context.Context, role string) context.Context {
	staff, _ := StaffFromContext(ctx)
	staff.Role = role
	return WithStaff(ctx, staff)
}
