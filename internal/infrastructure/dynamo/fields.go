package dynamo

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldEnable  = "enable"
	fieldStatus  = "status"
	fieldSentAt  = "sent_at"
	fieldReadAt  = "read_at"
	fieldUserID  = "user_id"
	fieldUpdated = "updated_at"
)
