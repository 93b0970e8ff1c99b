package common

// BirthdayLayout is the storage and wire format of contact birthdays.
const BirthdayLayout = "2006-01-02"

// AuthorizationHeaderName carries bearer tokens on inbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the only accepted authorization scheme.
const BearerScheme = "Bearer"
