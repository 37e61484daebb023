// Package location maps free text to a canonical Indian administrative
// region using a static keyword gazetteer.
package location

import "strings"

// Fallback is returned when no gazetteer keyword matches.
const Fallback = "India"

type region struct {
	Name     string
	Keywords []string
}

// gazetteer order is significant: the first declared region with a matching
// keyword wins, so text mentioning several regions resolves deterministically.
var gazetteer = []region{
	{"Uttar Pradesh", []string{"uttar pradesh", "lucknow", "kanpur", "varanasi", "prayagraj", "allahabad", "gorakhpur", "jaunpur", "azamgarh"}},
	{"Chhattisgarh", []string{"chhattisgarh", "raipur", "bastar", "bilaspur", "jagdalpur", "sukma", "kondagaon"}},
	{"Odisha", []string{"odisha", "orissa", "bhubaneswar", "kandhamal", "cuttack", "sambalpur", "rayagada"}},
	{"Madhya Pradesh", []string{"madhya pradesh", "bhopal", "indore", "jabalpur", "gwalior", "jhabua"}},
	{"Jharkhand", []string{"jharkhand", "ranchi", "jamshedpur", "dumka"}},
	{"Karnataka", []string{"karnataka", "bengaluru", "bangalore", "mangaluru", "mangalore", "hubballi", "hubli", "belagavi"}},
	{"Tamil Nadu", []string{"tamil nadu", "chennai", "madurai", "coimbatore", "kanyakumari"}},
	{"Telangana", []string{"telangana", "hyderabad", "warangal"}},
	{"Andhra Pradesh", []string{"andhra pradesh", "vijayawada", "visakhapatnam", "guntur", "tirupati"}},
	{"Maharashtra", []string{"maharashtra", "mumbai", "pune", "nagpur", "nashik", "aurangabad"}},
	{"Gujarat", []string{"gujarat", "ahmedabad", "surat", "vadodara", "rajkot"}},
	{"Rajasthan", []string{"rajasthan", "jaipur", "jodhpur", "udaipur", "kota"}},
	{"Punjab", []string{"punjab", "amritsar", "ludhiana", "jalandhar"}},
	{"Haryana", []string{"haryana", "gurugram", "gurgaon", "faridabad", "rohtak"}},
	{"Bihar", []string{"bihar", "patna", "gaya", "muzaffarpur"}},
	{"West Bengal", []string{"west bengal", "kolkata", "calcutta", "siliguri", "howrah"}},
	{"Delhi", []string{"new delhi", "delhi"}},
	{"Kerala", []string{"kerala", "kochi", "thiruvananthapuram", "kozhikode"}},
	{"Assam", []string{"assam", "guwahati", "dibrugarh", "silchar"}},
	{"Manipur", []string{"manipur", "imphal", "churachandpur"}},
	{"Uttarakhand", []string{"uttarakhand", "dehradun", "haridwar", "roorkee"}},
	{"Himachal Pradesh", []string{"himachal pradesh", "shimla", "dharamshala"}},
	{"Arunachal Pradesh", []string{"arunachal pradesh", "itanagar"}},
	{"Meghalaya", []string{"meghalaya", "shillong"}},
	{"Nagaland", []string{"nagaland", "kohima", "dimapur"}},
	{"Mizoram", []string{"mizoram", "aizawl"}},
	{"Tripura", []string{"tripura", "agartala"}},
	{"Goa", []string{"goa", "panaji", "margao"}},
	{"Jammu and Kashmir", []string{"jammu", "kashmir", "srinagar"}},
}

// Tag scans combined title+description text and returns the first region
// with a keyword substring match, or Fallback when nothing matches.
func Tag(text string) string {
	t := strings.ToLower(text)
	for _, r := range gazetteer {
		for _, kw := range r.Keywords {
			if strings.Contains(t, kw) {
				return r.Name
			}
		}
	}
	return Fallback
}

// Regions returns the canonical region names in gazetteer order.
func Regions() []string {
	out := make([]string, 0, len(gazetteer)+1)
	for _, r := range gazetteer {
		out = append(out, r.Name)
	}
	return append(out, Fallback)
}
