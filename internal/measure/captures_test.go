package measure

const (
	checkOK = `PING 192.0.2.10 (192.0.2.10) 56(84) bytes of data.

--- 192.0.2.10 ping statistics ---
3 packets transmitted, 3 received, 0% packet loss, time 2003ms
rtt min/avg/max/mdev = 1.9/2.1/2.4/0.2 ms
`
	checkDown = `PING 192.0.2.10 (192.0.2.10) 56(84) bytes of data.

--- 192.0.2.10 ping statistics ---
3 packets transmitted, 0 received, 100% packet loss, time 2040ms
`
	checkLossy = `--- 192.0.2.10 ping statistics ---
3 packets transmitted, 2 received, 33.3333% packet loss, time 2003ms
rtt min/avg/max/mdev = 1.9/2.1/2.4/0.2 ms
`
	mtuTooBig = `PING 192.0.2.10 (192.0.2.10) 1472(1500) bytes of data.
ping: local error: message too long, mtu=1420
`
	baselinePing = `--- 192.0.2.10 ping statistics ---
5 packets transmitted, 5 received, 0% packet loss, time 4006ms
rtt min/avg/max/mdev = 2.1/2.5/3.0/0.3 ms
`
	livePing = `64 bytes from 192.0.2.10: icmp_seq=1 ttl=64 time=3.2 ms
--- 192.0.2.10 ping statistics ---
120 packets transmitted, 119 received, 0.833333% packet loss, time 119170ms
rtt min/avg/max/mdev = 2.2/3.1/9.8/1.1 ms
`
	postPing = `--- 192.0.2.10 ping statistics ---
4 packets transmitted, 4 received, 0% packet loss, time 3004ms
rtt min/avg/max/mdev = 2.0/2.4/2.9/0.3 ms
`
	udpUpload = `Connecting to host 192.0.2.10, port 5201
[  5] local 192.0.2.1 port 50000 connected to 192.0.2.10 port 5201
[ ID] Interval           Transfer     Bitrate         Total Datagrams
[  5]   0.00-60.00  sec  5.94 GBytes   851 Mbits/sec  0.000 ms  0/4405000 (0%)  sender
[  5]   0.00-60.00  sec  5.94 GBytes   850 Mbits/sec  0.45 ms  4405/4405000 (0.1%)  receiver

iperf Done.
`
	udpDownload = `Reverse mode, remote host 192.0.2.10 is sending
[  5]   0.00-60.00  sec  6.20 GBytes   887.5 Mbits/sec  0.000 ms  0/4600000 (0%)  sender
[  5]   0.00-60.00  sec  6.10 GBytes   873 Mbits/sec  0.038 ms  46/4600000 (0.001%)  receiver
`
	tcpUpload = `[ ID] Interval           Transfer     Bitrate         Retr
[  5]   0.00-60.00  sec  6.59 GBytes   943 Mbits/sec    0             sender
[  5]   0.00-60.04  sec  6.58 GBytes   941 Mbits/sec                  receiver
`
	tcpDownload = `Reverse mode, remote host 192.0.2.10 is sending
[  5]   0.00-60.00  sec  6.40 GBytes   916 Mbits/sec   12             sender
[  5]   0.00-60.00  sec  6.38 GBytes   913 Mbits/sec                  receiver
`
)
