package enums

type CreditSKU string

const (
	CreditSKUCredits5    CreditSKU = "credits_5"
	CreditSKUCredits20   CreditSKU = "credits_20"
	CreditSKUUnlimited1m CreditSKU = "unlimited_1m"
)
