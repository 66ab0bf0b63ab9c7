package broken

func Rules( {
