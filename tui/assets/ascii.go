package assets

// Logo frames for the operation header.
// Frame 0 = idle, Frames 1-3 = traffic moving through the NAT.
var DashFrames = [4]string{
	// Frame 0: idle
	` .-[ vpc ]---------.
 | [pub]    [pub]   |
 |   |  nat   |     |
 | [prv]    [prv]   |
 '------------------'`,
	// Frame 1
	` .-[ vpc ]---------.
 | [pub]    [pub]   |
 |   ^  nat   |     |
 | [prv]    [prv]   |
 '------------------'`,
	// Frame 2
	` .-[ vpc ]---------.
 | [pub]>   [pub]   |
 |   |  nat   ^     |
 | [prv]    [prv]   |
 '------------------'`,
	// Frame 3
	` .-[ vpc ]---------.
 | [pub]    [pub]>  |
 |   |  nat   |     |
 | [prv]    [prv]   |
 '------------------'`,
}

// GetDashFrame returns the logo frame at the given index.
func GetDashFrame(frame int) string {
	return DashFrames[frame%len(DashFrames)]
}
