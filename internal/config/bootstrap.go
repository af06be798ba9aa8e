package config

// BootstrapConfig names the first super administrator.  When Username is
// set and no such user exists, the server creates it at startup with a
// default password that must be changed at first login.
type BootstrapConfig struct {
    Username string
    Email    string
    Password string
}

// LoadBootstrapConfig reads SUPERADMIN_USERNAME, SUPERADMIN_EMAIL and
// SUPERADMIN_PASSWORD.  All three are optional.
func LoadBootstrapConfig() BootstrapConfig {
    return BootstrapConfig{
        Username: envStr("SUPERADMIN_USERNAME", ""),
        Email:    envStr("SUPERADMIN_EMAIL", ""),
        Password: envStr("SUPERADMIN_PASSWORD", ""),
    }
}
