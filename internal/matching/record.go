package matching

// Column order of the tabular record stores.  Rows are repaired to exactly
// this many columns before parsing.
var allFields = []string{
	"report_id", "report_date", "reporter_type", "case_status",
	"phones", "bank_accounts", "upi_ids", "emails", "websites",
	"social_handles", "ip_addresses", "crypto_wallets",
	"institute", "victim_location", "scammer_claimed_location",
	"platforms", "language_accent", "scam_category",
	"description", "profile_details", "documents_shared_keywords",
	"payment_method", "referrer_source", "contact_methods",
}

// ExpectedColumns is the canonical store width.
const ExpectedColumns = 24

// EntityRecord is one normalized report row.  Identifier fields are sets
// because the source columns are pipe-delimited multi-value text.
type EntityRecord struct {
	// ID labels the record in match output: report_id when the row carries
	// one, otherwise a positional label assigned at load time.
	ID string

	ReportDate   string
	ReporterType string
	CaseStatus   string

	// Strong identifiers: sharing any one of these is near-conclusive.
	Phones        StringSet
	BankAccounts  StringSet
	UPIIDs        StringSet
	Emails        StringSet
	Websites      StringSet
	SocialHandles StringSet
	IPAddresses   StringSet
	CryptoWallets StringSet

	// Medium-specificity context.
	Institute              StringSet
	VictimLocation         StringSet
	ScammerClaimedLocation StringSet
	Platforms              StringSet
	ContactMethods         StringSet

	// Weak, low-specificity attributes compared by normalized equality.
	LanguageAccent string
	ScamCategory   string
	PaymentMethod  string

	// Free text, only consulted in semantic (advanced) mode.
	Description             string
	ProfileDetails          string
	DocumentsSharedKeywords string
	ReferrerSource          string
}

// RecordColumns returns the canonical column names in order.  Alternative
// record sources (SQL tables) select these columns and feed rows through
// RecordFromRow.
func RecordColumns() []string {
	out := make([]string, len(allFields))
	copy(out, allFields)
	return out
}

// RecordFromRow repairs a raw row to the canonical width and parses it.
func RecordFromRow(cols []string, fallbackID string) EntityRecord {
	return recordFromColumns(repairRow(cols), fallbackID)
}

// recordFromColumns builds a normalized EntityRecord from a repaired row.
// cols must be ExpectedColumns long, in allFields order.
func recordFromColumns(cols []string, fallbackID string) EntityRecord {
	get := func(i int) string { return cols[i] }

	r := EntityRecord{
		ReportDate:   get(1),
		ReporterType: get(2),
		CaseStatus:   get(3),

		Phones:        ParseSet(get(4), NormalizePhone),
		BankAccounts:  ParseSet(get(5), NormalizeToken),
		UPIIDs:        ParseSet(get(6), NormalizeEmail),
		Emails:        ParseSet(get(7), NormalizeEmail),
		Websites:      ParseSet(get(8), NormalizeWebsite),
		SocialHandles: ParseSet(get(9), NormalizeToken),
		IPAddresses:   ParseSet(get(10), NormalizeToken),
		// Wallet addresses are case-sensitive; only trim them.
		CryptoWallets: ParseSet(get(11), NormalizeExact),

		Institute:              ParseSet(get(12), NormalizeToken),
		VictimLocation:         ParseSet(get(13), NormalizeToken),
		ScammerClaimedLocation: ParseSet(get(14), NormalizeToken),
		Platforms:              ParseSet(get(15), NormalizeToken),
		ContactMethods:         ParseSet(get(23), NormalizeToken),

		LanguageAccent: NormalizeToken(get(16)),
		ScamCategory:   NormalizeToken(get(17)),
		PaymentMethod:  NormalizeToken(get(21)),

		Description:             get(18),
		ProfileDetails:          get(19),
		DocumentsSharedKeywords: get(20),
		ReferrerSource:          get(22),
	}

	if isPlaceholder(r.LanguageAccent) {
		r.LanguageAccent = ""
	}
	if isPlaceholder(r.ScamCategory) {
		r.ScamCategory = ""
	}
	if isPlaceholder(r.PaymentMethod) {
		r.PaymentMethod = ""
	}

	if id := get(0); !isPlaceholder(id) {
		r.ID = id
	} else {
		r.ID = fallbackID
	}
	return r
}
