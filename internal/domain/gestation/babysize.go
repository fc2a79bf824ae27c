package gestation

// BabySize compares the baby's size at a given week to a familiar object.
type BabySize struct {
	Week       int    `json:"week"`
	Comparison string `json:"comparison"`
	Length     string `json:"length"`
	Weight     string `json:"weight,omitempty"`
	Milestone  string `json:"milestone"`
	Tip        string `json:"tip"`
}

var babySizes = []BabySize{
	{4, "poppy seed", "0.1 cm", "", "The embryo implants in the uterus", "Start taking folic acid if you have not already"},
	{5, "sesame seed", "0.2 cm", "", "The neural tube starts forming", "Avoid raw food and wash vegetables well to prevent toxoplasmosis"},
	{6, "lentil", "0.5 cm", "", "The heart starts beating", "Morning sickness may begin. Eat small portions several times a day"},
	{7, "blueberry", "1 cm", "", "Arm and leg buds appear", "Drink plenty of water to support the growing blood volume"},
	{8, "raspberry", "1.6 cm", "1 g", "Fingers and toes begin to form", "Book your first prenatal appointment if you have not yet"},
	{9, "cherry", "2.3 cm", "2 g", "Essential organs are in place", "Wear a comfortable bra. Breasts may feel tender and swollen"},
	{10, "strawberry", "3.1 cm", "4 g", "The embryo is now called a fetus", "Avoid clothes that are tight around the waist"},
	{11, "fig", "4.1 cm", "7 g", "The baby starts moving", "A good week to book the first trimester morphology scan"},
	{12, "lime", "5.4 cm", "14 g", "Reflexes develop", "Share the news when you feel ready. The risk of miscarriage drops a lot now"},
	{13, "lemon", "7.4 cm", "23 g", "Vocal cords form", "Energy should start coming back. Try light walks"},
	{14, "peach", "8.7 cm", "43 g", "Facial expressions begin", "Take bump photos to follow the growth week by week"},
	{15, "apple", "10.1 cm", "70 g", "The skeleton starts to harden", "Mind your posture. Your centre of gravity is shifting"},
	{16, "avocado", "11.6 cm", "100 g", "The baby can hear sounds", "You may start feeling the first movements"},
	{17, "pear", "13 cm", "140 g", "Fat starts to accumulate", "Use sunscreen. Your skin is more prone to melasma"},
	{18, "bell pepper", "14.2 cm", "190 g", "Fingerprints form", "Talk to the baby. Your voice is becoming familiar"},
	{19, "mango", "15.3 cm", "240 g", "Senses develop quickly", "For leg cramps, stretch before bed and eat potassium-rich food"},
	{20, "banana", "25.6 cm", "300 g", "Halfway there", "The ideal week for the second trimester morphology scan"},
	{21, "carrot", "26.7 cm", "360 g", "The baby swallows amniotic fluid", "Avoid standing or sitting in the same position for long"},
	{22, "papaya", "27.8 cm", "430 g", "Eyebrows and eyelashes appear", "Keep an iron-rich diet to prevent anaemia"},
	{23, "grapefruit", "28.9 cm", "501 g", "Hearing keeps sharpening", "Play calm music for the baby"},
	{24, "corn cob", "30 cm", "600 g", "The lungs start producing surfactant", "Watch for signs of preterm labour and tell your doctor about unusual pain"},
	{25, "cauliflower", "34.6 cm", "660 g", "The baby responds to your voice", "Rest whenever you can. Tiredness may return"},
	{26, "lettuce", "35.6 cm", "760 g", "The eyes begin to open", "Start planning the nursery and the layette"},
	{27, "broccoli", "36.6 cm", "875 g", "Sleep cycles are established", "Moisturise your belly to help prevent stretch marks"},
	{28, "eggplant", "37.6 cm", "1 kg", "The baby can blink", "Time to book the obstetric Doppler scan"},
	{29, "butternut squash", "38.6 cm", "1.2 kg", "Muscles and lungs keep maturing", "Eat yoghurt, cheese and dark leafy greens for calcium"},
	{30, "cabbage", "39.9 cm", "1.3 kg", "The brain grows fast", "Discuss a birth plan with your obstetrician"},
	{31, "coconut", "41.1 cm", "1.5 kg", "The baby turns the head side to side", "Expect more bathroom trips as the uterus presses on the bladder"},
	{32, "jicama", "42.4 cm", "1.7 kg", "Fingernails are complete", "Start washing the baby's clothes with mild soap"},
	{33, "pineapple", "43.7 cm", "1.9 kg", "Bones keep hardening", "Get the hospital bag mostly packed"},
	{34, "cantaloupe", "45 cm", "2.1 kg", "The central nervous system matures", "Rest a lot. Swelling in the feet may increase"},
	{35, "honeydew melon", "46.2 cm", "2.4 kg", "The kidneys are fully developed", "Learn how to time contractions"},
	{36, "romaine lettuce", "47.4 cm", "2.6 kg", "The baby settles into birth position", "Book the final scan to check the baby's position"},
	{37, "swiss chard", "48.6 cm", "2.9 kg", "Considered early term", "Check the route to the maternity ward and keep your documents at hand"},
	{38, "leek", "49.8 cm", "3.1 kg", "Organs are ready for life outside", "Relax and enjoy the last days of the bump"},
	{39, "mini watermelon", "50.7 cm", "3.3 kg", "Full term", "Watch for waters breaking or regular contractions"},
	{40, "small pumpkin", "51.2 cm", "3.5 kg", "Ready to meet you", "Congratulations, you are about to meet your baby"},
}

// BabySizeForAge returns the comparison for the completed week of a
// fractional gestational age. Ages before week 4 map to week 4 and ages past
// term map to week 40.
func BabySizeForAge(weeks float64) BabySize {
	w, _ := DecimalToWeeksAndDays(weeks)
	first := babySizes[0].Week
	if w < first {
		w = first
	}
	idx := w - first
	if idx >= len(babySizes) {
		idx = len(babySizes) - 1
	}
	return babySizes[idx]
}
