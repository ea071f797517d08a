package songs

// Builtin returns the bundled songs in display order
func Builtin() []*Song {
	return []*Song{
		happyBirthday(),
		twinkle(),
		mary(),
		odeToJoy(),
		jingleBells(),
	}
}

func happyBirthday() *Song {
	s := MustNew("Happy Birthday",
		[]string{
			"C4", "C4", "D4", "C4", "F4", "E4", "rest",
			"C4", "C4", "D4", "C4", "G4", "F4", "rest",
			"C4", "C4", "C5", "A4", "F4", "E4", "D4", "rest",
			"Bb4", "Bb4", "A4", "F4", "G4", "F4",
		},
		[]float64{
			0.5, 0.5, 1, 1, 1, 2, 1,
			0.5, 0.5, 1, 1, 1, 2, 1,
			0.5, 0.5, 1, 1, 1, 1, 2, 1,
			0.5, 0.5, 1, 1, 1, 2,
		})
	s.Artist = "Traditional"
	return s
}

func twinkle() *Song {
	s := MustNew("Twinkle Star",
		[]string{
			"C4", "C4", "G4", "G4", "A4", "A4", "G4", "rest",
			"F4", "F4", "E4", "E4", "D4", "D4", "C4", "rest",
		},
		[]float64{
			1, 1, 1, 1, 1, 1, 2, 0.5,
			1, 1, 1, 1, 1, 1, 2, 0.5,
		})
	s.Artist = "Traditional"
	return s
}

func mary() *Song {
	s := MustNew("Mary Had a Little Lamb",
		[]string{
			"E4", "D4", "C4", "D4", "E4", "E4", "E4", "rest",
			"D4", "D4", "D4", "rest", "E4", "G4", "G4", "rest",
		},
		[]float64{
			1, 1, 1, 1, 1, 1, 2, 0.5,
			1, 1, 2, 0.5, 1, 1, 2, 0.5,
		})
	s.Artist = "Traditional"
	return s
}

func odeToJoy() *Song {
	s := MustNew("Ode to Joy",
		[]string{
			"E4", "E4", "F4", "G4", "G4", "F4", "E4", "D4",
			"C4", "C4", "D4", "E4", "E4", "D4", "D4", "rest",
		},
		[]float64{
			1, 1, 1, 1, 1, 1, 1, 1,
			1, 1, 1, 1, 1.5, 0.5, 2, 1,
		})
	s.Artist = "Beethoven"
	return s
}

func jingleBells() *Song {
	s := MustNew("Jingle Bells",
		[]string{
			"E4", "E4", "E4", "rest", "E4", "E4", "E4", "rest",
			"E4", "G4", "C4", "D4", "E4", "rest",
		},
		[]float64{
			1, 1, 2, 0.5, 1, 1, 2, 0.5,
			1, 1, 1, 1, 4, 1,
		})
	s.Artist = "James Lord Pierpont"
	return s
}
