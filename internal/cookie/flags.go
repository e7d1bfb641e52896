package cookie

// Flags はフラグCookieの型付きビュー。
type Flags struct {
	Authenticated bool
	UserType      string
	ProviderID    string
}

// ReadFlags はJarからフラグCookieを読み取る。
// is-authenticated は値が "true" の場合のみ認証済みとみなす。
func ReadFlags(jar Jar) Flags {
	var f Flags
	if v, ok := jar.Get(IsAuthenticated); ok && v == "true" {
		f.Authenticated = true
	}
	f.UserType, _ = jar.Get(UserType)
	f.ProviderID, _ = jar.Get(ProviderID)
	return f
}

// ClearFlags は3つのフラグCookieをすべてクリアする。
func ClearFlags(jar Jar) {
	for _, name := range FlagNames {
		jar.Clear(name)
	}
}
