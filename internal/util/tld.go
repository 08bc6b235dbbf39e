package util

var KnownTwoPartTLDs = map[string]bool{
	"co.in": true, "net.in": true, "org.in": true, "firm.in": true, "gen.in": true,
	"ind.in": true, "co.uk": true, "org.uk": true, "com.au": true, "net.au": true,
	"co.nz": true, "com.sg": true, "com.my": true, "co.za": true, "com.br": true,
	"co.jp": true, "com.cn": true, "com.mx": true, "ae.org": true, "com.bd": true,
}
