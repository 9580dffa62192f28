package domain

// universe.go — los tres universos nombrados y su unión de descarga.
//
// low    = blue chips (lista base) + additions de config, dedup first-seen.
// medium = lista explícita corta de ETFs amplios.
// high   = lista curada de nombres de alta beta.

// blueChips is the base low-risk list, large-cap US names grouped loosely by
// sector. El bucket low del live strategy usa los primeros BlueChipSlice.
var blueChips = []string{
	// Mega-cap tech
	"AAPL", "MSFT", "GOOGL", "GOOG", "AMZN", "NVDA", "META", "TSLA", "AVGO", "ORCL",
	"CRM", "ADBE", "AMD", "INTC", "CSCO", "QCOM", "TXN", "IBM", "NOW", "INTU",
	"AMAT", "MU", "LRCX", "KLAC", "ADI", "SNPS", "CDNS", "MRVL", "NXPI", "MCHP",
	"ANET", "PANW", "CRWD", "FTNT", "ADSK", "WDAY", "TEAM", "DDOG", "SNOW", "ZS",
	"HPQ", "DELL", "HPE", "NTAP", "STX", "WDC", "SMCI", "ON", "SWKS", "QRVO",
	// Communication / media
	"NFLX", "DIS", "CMCSA", "T", "VZ", "TMUS", "CHTR", "WBD", "PARA", "FOXA",
	"EA", "TTWO", "RBLX", "SPOT", "PINS", "SNAP", "MTCH", "OMC", "IPG", "NWSA",
	// Financials
	"BRK.B", "JPM", "BAC", "WFC", "C", "GS", "MS", "SCHW", "BLK", "BX",
	"KKR", "APO", "AXP", "V", "MA", "PYPL", "FI", "FIS", "GPN", "COF",
	"USB", "PNC", "TFC", "BK", "STT", "AIG", "MET", "PRU", "AFL", "ALL",
	"TRV", "PGR", "CB", "MMC", "AON", "AJG", "WTW", "CME", "ICE", "NDAQ",
	"SPGI", "MCO", "MSCI", "COIN", "HOOD", "SYF", "DFS", "CFG", "KEY", "RF",
	// Healthcare
	"UNH", "JNJ", "LLY", "ABBV", "MRK", "PFE", "TMO", "ABT", "DHR", "BMY",
	"AMGN", "GILD", "VRTX", "REGN", "BIIB", "MRNA", "CVS", "CI", "ELV", "HUM",
	"HCA", "MCK", "CAH", "COR", "ZTS", "ISRG", "SYK", "BSX", "MDT", "EW",
	"BDX", "BAX", "ZBH", "A", "IQV", "RMD", "DXCM", "IDXX", "MTD", "WST",
	// Consumer
	"WMT", "COST", "PG", "KO", "PEP", "PM", "MO", "MDLZ", "CL", "KMB",
	"GIS", "K", "HSY", "SYY", "KR", "TGT", "DG", "DLTR", "EL", "CHD",
	"STZ", "TAP", "KDP", "MNST", "CAG", "CPB", "HRL", "MKC", "TSN", "ADM",
	"HD", "LOW", "MCD", "SBUX", "NKE", "TJX", "ROST", "YUM", "CMG", "DRI",
	"MAR", "HLT", "BKNG", "ABNB", "EXPE", "RCL", "CCL", "NCLH", "LVS", "MGM",
	"F", "GM", "RIVN", "LCID", "HOG", "BBY", "ULTA", "LULU", "DECK", "GRMN",
	"EBAY", "ETSY", "W", "CHWY", "DASH", "UBER", "LYFT", "AZO", "ORLY", "GPC",
	// Industrials
	"BA", "CAT", "DE", "HON", "GE", "RTX", "LMT", "NOC", "GD", "TXT",
	"MMM", "ITW", "EMR", "ETN", "PH", "CMI", "PCAR", "ROK", "DOV", "XYL",
	"AME", "FTV", "IR", "SWK", "FAST", "GWW", "URI", "PWR", "EME", "J",
	"UNP", "CSX", "NSC", "UPS", "FDX", "DAL", "UAL", "AAL", "LUV", "ALK",
	"WM", "RSG", "CTAS", "PAYX", "ADP", "VRSK", "EFX", "TRU", "LDOS", "BAH",
	// Energy & materials
	"XOM", "CVX", "COP", "EOG", "SLB", "HAL", "BKR", "PSX", "VLO", "MPC",
	"OXY", "PXD", "DVN", "FANG", "HES", "APA", "KMI", "WMB", "OKE", "TRGP",
	"LIN", "APD", "SHW", "ECL", "DD", "DOW", "LYB", "PPG", "NUE", "STLD",
	"FCX", "NEM", "ALB", "MOS", "CF", "CTVA", "IFF", "AVY", "PKG", "IP",
	// Utilities & real estate
	"NEE", "DUK", "SO", "D", "AEP", "EXC", "SRE", "XEL", "PEG", "ED",
	"WEC", "ES", "EIX", "DTE", "PPL", "FE", "AEE", "CMS", "CNP", "ATO",
	"AMT", "PLD", "CCI", "EQIX", "PSA", "SPG", "O", "WELL", "DLR", "AVB",
	"EQR", "VTR", "ARE", "MAA", "UDR", "ESS", "EXR", "INVH", "KIM", "REG",
}

// BlueChipSlice is how many leading blue chips the live low bucket trades.
const BlueChipSlice = 100

// mediumRisk: lista explícita corta de ETFs amplios.
var mediumRisk = []string{
	"SPY", "QQQ", "DIA", "IWM", "VTI", "VOO", "VEA", "VWO", "AGG", "GLD",
}

// highRisk: curated high-beta list.
var highRisk = []string{
	"PLTR", "SOFI", "AFRM", "UPST", "SQ", "SHOP", "ROKU", "TWLO", "NET", "MDB",
	"OKTA", "DOCU", "ZM", "PTON", "DKNG", "PENN", "CVNA", "OPEN", "Z", "RDFN",
	"MARA", "RIOT", "CLSK", "HUT", "MSTR", "SMR", "OKLO", "IONQ", "RGTI", "QBTS",
	"AI", "BBAI", "SOUN", "PATH", "S", "GTLB", "CFLT", "ESTC", "DOCS", "HIMS",
	"TDOC", "EXAS", "NTLA", "CRSP", "BEAM", "EDIT", "SRPT", "RARE", "BMRN", "ALNY",
	"IONS", "NBIX", "HALO", "INSM", "AXSM", "ACAD", "APLS", "RYTM", "KRYS", "FOLD",
	"ENPH", "SEDG", "RUN", "FSLR", "PLUG", "BE", "CHPT", "QS", "NIO", "XPEV",
	"LI", "GRAB", "SE", "MELI", "NU", "PAGS", "STNE", "GLBE", "WIX", "FVRR",
	"TTD", "APP", "U", "DUOL", "BILL", "TOST", "BROS", "CELH", "ELF", "WING",
	"ONON", "BIRK", "ARM", "AVAV", "KTOS", "RKLB", "ASTS", "LUNR", "JOBY", "ACHR",
	"VRT", "MOD", "POWL", "TLN", "VST", "CEG", "NRG", "GEV", "FSLY", "AKAM",
	"TER", "ENTG", "COHR", "MPWR", "ALGM", "CRDO", "ALAB", "AEHR", "ACLS", "FORM",
}

// LowRiskUniverse returns the blue-chip list plus the custom additions,
// deduplicated preserving first-seen order.
func LowRiskUniverse(additions []string) []string {
	return dedup(append(append([]string{}, blueChips...), additions...))
}

// MediumRiskUniverse returns the explicit medium list.
func MediumRiskUniverse() []string {
	return append([]string{}, mediumRisk...)
}

// HighRiskUniverse returns the curated high-risk list.
func HighRiskUniverse() []string {
	return append([]string{}, highRisk...)
}

// BlueChipTop returns the first n blue chips (the live low-bucket slice).
func BlueChipTop(n int) []string {
	if n > len(blueChips) {
		n = len(blueChips)
	}
	return append([]string{}, blueChips[:n]...)
}

// LiveLowUniverse es el universo del bucket low de la cuenta live: el slice
// top de blue chips más las additions, dedup.
func LiveLowUniverse(additions []string) []string {
	return dedup(append(BlueChipTop(BlueChipSlice), additions...))
}

// UnionUniverse is the download universe: la unión de los tres, dedup
// preservando el orden de primera aparición.
func UnionUniverse(additions []string) []string {
	all := append(append([]string{}, blueChips...), additions...)
	all = append(all, mediumRisk...)
	all = append(all, highRisk...)
	return dedup(all)
}

func dedup(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
