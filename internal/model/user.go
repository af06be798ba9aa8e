package model

import "time"

// Role is the base role stored in users.role.  Every capability the portal
// grants is derived from this value alone.
type Role string

const (
    RoleStudent    Role = "student"
    RoleMember     Role = "member"
    RoleFinance    Role = "finance"
    RoleAdmin      Role = "admin"
    RoleSuperAdmin Role = "super_admin"
)

// Roles lists every known role in ascending order of privilege.  It is used
// to validate form input and to populate role selectors.
var Roles = []Role{RoleStudent, RoleMember, RoleFinance, RoleAdmin, RoleSuperAdmin}

// UserStatus is the account status stored in users.status.  Users are never
// hard-deleted; disabling an account flips the status.
type UserStatus string

const (
    StatusActive   UserStatus = "active"
    StatusDisabled UserStatus = "disabled"
)

// User represents an application user record as stored in the `users`
// table.  Each field corresponds to a column in the database.
//
// Fields:
//  ID                  – primary key identifier of the user.
//  Username            – unique login name (usually the student number).
//  Email               – unique email address.
//  Phone               – mobile number used by the SMS channel (may be empty).
//  PasswordHash        – bcrypt hashed password.
//  Role                – base role, see Role.
//  Status              – active or disabled.
//  IsDefaultPassword   – the password was generated at provisioning and has
//                        not been changed by the user yet.
//  ForcePasswordChange – an administrator requested a password change.
//  PasswordUpdatedAt   – when the password was last set.
//  CreatedAt/UpdatedAt – row timestamps.
type User struct {
    ID                  uint64     // users.id
    Username            string     // users.username
    Email               string     // users.email
    Phone               string     // users.phone
    PasswordHash        string     // users.password_hash
    Role                Role       // users.role
    Status              UserStatus // users.status
    IsDefaultPassword   bool       // users.is_default_password
    ForcePasswordChange bool       // users.force_password_change
    PasswordUpdatedAt   time.Time  // users.password_updated_at
    CreatedAt           time.Time  // users.created_at
    UpdatedAt           time.Time  // users.updated_at
}

// Active reports whether the account may log in.
func (u User) Active() bool { return u.Status == StatusActive }
